package db

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB 全局数据库连接
var DB *sql.DB

// Init 初始化数据库
func Init(dbPath string) error {
	var err error
	// 使用 DSN 参数配置 WAL 模式和超时，确保连接池中的所有连接都生效
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	DB, err = sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	// 限制连接数以避免在极高并发下触发 SQLite 锁定
	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(5)
	DB.SetConnMaxLifetime(time.Hour)

	// 创建表
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content_hash TEXT NOT NULL UNIQUE,
		file_path TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		process_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS image_tag_stats (
		image_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		occurrence_count INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (image_id) REFERENCES images(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (image_id, tag_id)
	);

	CREATE TABLE IF NOT EXISTS system_configs (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		date_modified DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_images_created_at ON images(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_images_filename ON images(original_filename);
	CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(name);
	CREATE INDEX IF NOT EXISTS idx_stats_tag ON image_tag_stats(tag_id);
	`

	_, err = DB.Exec(schema)
	if err != nil {
		return err
	}

	log.Printf("✅ 数据库初始化成功 (WAL模式): %s", dbPath)
	return nil
}

// Close 关闭数据库连接
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
