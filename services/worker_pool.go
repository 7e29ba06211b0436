package services

import (
	"log"
	"sync"
)

// AnalyzeWorkerPool 异步分析任务工作池
// HTTP 接口把需要补充分析轮次的图片 ID 丢进队列，由固定数量的 worker 串行消费。
type AnalyzeWorkerPool struct {
	taskChan    chan int64
	workerCount int
	wg          sync.WaitGroup
	handler     func(int64) // 实际处理任务的函数
	stopChan    chan struct{}
	enabled     bool
}

// NewAnalyzeWorkerPool 创建一个新的工作池
func NewAnalyzeWorkerPool(workerCount int, handler func(int64)) *AnalyzeWorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &AnalyzeWorkerPool{
		taskChan:    make(chan int64, 1000), // 缓冲队列，防止短时间流量高峰
		workerCount: workerCount,
		handler:     handler,
		stopChan:    make(chan struct{}),
	}
}

// Start 启动工作池
func (p *AnalyzeWorkerPool) Start() {
	if p.enabled {
		return
	}
	log.Printf("🧵 分析工作池启动: %d workers", p.workerCount)
	p.enabled = true
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit 提交任务
func (p *AnalyzeWorkerPool) Submit(imageID int64) {
	if !p.enabled {
		log.Printf("ℹ️ 分析工作池未启动，跳过任务: %d", imageID)
		return
	}
	select {
	case p.taskChan <- imageID:
		// 成功入队
	default:
		log.Printf("⚠️ 分析任务队列已满 (size=1000)，忽略图片 ID: %d", imageID)
	}
}

// Stop 停止工作池
func (p *AnalyzeWorkerPool) Stop() {
	close(p.stopChan)
	close(p.taskChan)
	p.wg.Wait()
	log.Printf("🛑 分析工作池已停止")
}

func (p *AnalyzeWorkerPool) worker(id int) {
	defer p.wg.Done()
	log.Printf("👷 Worker %d 准备就绪", id)
	for {
		select {
		case imageID, ok := <-p.taskChan:
			if !ok {
				return
			}
			// 执行繁重的视觉分析逻辑
			p.handler(imageID)
		case <-p.stopChan:
			return
		}
	}
}
