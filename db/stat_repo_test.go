package db

import (
	"strings"
	"testing"
)

// RecordPass 在一个事务里递增轮数并更新标签统计
func TestRecordPassAccumulates(t *testing.T) {
	setupTestDB(t)
	imageRepo := NewImageRepository()
	statRepo := NewStatRepository()

	id, err := imageRepo.GetOrCreate(hashA, "/photos/a.jpg", "a.jpg")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if err := statRepo.RecordPass(id, []string{"Cat", "Outdoor"}); err != nil {
		t.Fatalf("RecordPass failed: %v", err)
	}
	if err := statRepo.RecordPass(id, []string{"Cat"}); err != nil {
		t.Fatalf("RecordPass failed: %v", err)
	}

	img, err := imageRepo.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if img.ProcessCount != 2 {
		t.Errorf("process_count = %d, want 2", img.ProcessCount)
	}

	stats, err := statRepo.GetRanked(id)
	if err != nil {
		t.Fatalf("GetRanked failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Expected 2 tag stats, got %d", len(stats))
	}
	if stats[0].Name != "Cat" || stats[0].OccurrenceCount != 2 || stats[0].Confidence != 1.0 {
		t.Errorf("Unexpected top stat: %+v", stats[0])
	}
	if stats[1].Name != "Outdoor" || stats[1].OccurrenceCount != 1 || stats[1].Confidence != 0.5 {
		t.Errorf("Unexpected second stat: %+v", stats[1])
	}
}

// 同一轮内重复标签只算一次出现
func TestRecordPassDeduplicatesWithinPass(t *testing.T) {
	setupTestDB(t)
	imageRepo := NewImageRepository()
	statRepo := NewStatRepository()

	id, err := imageRepo.GetOrCreate(hashA, "/photos/a.jpg", "a.jpg")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if err := statRepo.RecordPass(id, []string{"Cat", "Cat", ""}); err != nil {
		t.Fatalf("RecordPass failed: %v", err)
	}

	stats, err := statRepo.GetRanked(id)
	if err != nil {
		t.Fatalf("GetRanked failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("Expected 1 tag stat, got %d", len(stats))
	}
	if stats[0].OccurrenceCount != 1 {
		t.Errorf("occurrence_count = %d, want 1", stats[0].OccurrenceCount)
	}
}

// 图片不存在时整个事务回滚，不留下任何标签行
func TestRecordPassUnknownImage(t *testing.T) {
	setupTestDB(t)
	statRepo := NewStatRepository()
	tagRepo := NewTagRepository()

	err := statRepo.RecordPass(9999, []string{"Cat"})
	if err == nil {
		t.Fatal("Expected error for unknown image")
	}
	if !strings.Contains(err.Error(), "图片不存在") {
		t.Errorf("Unexpected error: %v", err)
	}

	names, err := tagRepo.ListNames()
	if err != nil {
		t.Fatalf("ListNames failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("Rolled-back pass left tags behind: %v", names)
	}
}

// 置信度降序、同分按名称升序
func TestGetRankedOrdering(t *testing.T) {
	setupTestDB(t)
	imageRepo := NewImageRepository()
	statRepo := NewStatRepository()

	id, err := imageRepo.GetOrCreate(hashA, "/photos/a.jpg", "a.jpg")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if err := statRepo.RecordPass(id, []string{"Zebra", "Animal"}); err != nil {
		t.Fatalf("RecordPass failed: %v", err)
	}
	if err := statRepo.RecordPass(id, []string{"Animal", "Stripes"}); err != nil {
		t.Fatalf("RecordPass failed: %v", err)
	}

	stats, err := statRepo.GetRanked(id)
	if err != nil {
		t.Fatalf("GetRanked failed: %v", err)
	}

	expected := []string{"Animal", "Stripes", "Zebra"}
	if len(stats) != len(expected) {
		t.Fatalf("Expected %d stats, got %d", len(expected), len(stats))
	}
	for i, name := range expected {
		if stats[i].Name != name {
			t.Errorf("stats[%d].Name = %s, want %s", i, stats[i].Name, name)
		}
	}
}

func TestVocabularyStats(t *testing.T) {
	setupTestDB(t)
	imageRepo := NewImageRepository()
	statRepo := NewStatRepository()

	idA, err := imageRepo.GetOrCreate(hashA, "/photos/a.jpg", "a.jpg")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	idB, err := imageRepo.GetOrCreate(hashB, "/photos/b.jpg", "b.jpg")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if err := statRepo.RecordPass(idA, []string{"Cat", "Outdoor"}); err != nil {
		t.Fatalf("RecordPass failed: %v", err)
	}
	if err := statRepo.RecordPass(idB, []string{"Outdoor"}); err != nil {
		t.Fatalf("RecordPass failed: %v", err)
	}

	stats, err := statRepo.VocabularyStats(10)
	if err != nil {
		t.Fatalf("VocabularyStats failed: %v", err)
	}

	if stats.TotalTags != 2 {
		t.Errorf("TotalTags = %d, want 2", stats.TotalTags)
	}
	if stats.TotalImages != 2 {
		t.Errorf("TotalImages = %d, want 2", stats.TotalImages)
	}
	if stats.TotalPasses != 2 {
		t.Errorf("TotalPasses = %d, want 2", stats.TotalPasses)
	}
	if len(stats.TopTags) != 2 || stats.TopTags[0].Name != "Outdoor" || stats.TopTags[0].ImageCount != 2 {
		t.Errorf("Unexpected top tags: %+v", stats.TopTags)
	}
}
