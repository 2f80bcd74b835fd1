package mysql

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// HistoryRecord 表示一次目标执行完成后的归档结构。
type HistoryRecord struct {
	Goal      string
	SessionID string
	Thought   string
	Reply     string
	TaskCount int
	Completed int
	Observes  string
	CreatedAt int64
}

// HistoryRepository 抽象执行历史的持久化接口。
type HistoryRepository interface {
	Save(ctx context.Context, record HistoryRecord) error
	ListLatest(ctx context.Context, limit int) ([]HistoryRecord, error)
	Close() error
}

// MemoryHistoryRepository 使用本地 JSON 文件模拟 MySQL 的效果，方便迭代开发。
type MemoryHistoryRepository struct {
	mu       sync.RWMutex
	dataFile string
	records  []HistoryRecord
}

// NewMemoryHistoryRepository 创建一个内存历史仓库。
func NewMemoryHistoryRepository(dataDir string) (*MemoryHistoryRepository, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	path := filepath.Join(dataDir, "history.log")
	repo := &MemoryHistoryRepository{dataFile: path}
	if err := repo.loadFromDisk(); err != nil {
		return nil, err
	}
	return repo, nil
}

// Save 以追加写的方式记录执行结果。
func (m *MemoryHistoryRepository) Save(_ context.Context, record HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := os.OpenFile(m.dataFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("打开历史日志失败: %w", err)
	}
	defer file.Close()

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化历史记录失败: %w", err)
	}

	if _, err := file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("写入历史日志失败: %w", err)
	}

	m.records = append([]HistoryRecord{record}, m.records...)
	if len(m.records) > 512 {
		m.records = m.records[:512]
	}
	return nil
}

// ListLatest 返回最近的执行记录，按时间倒序排列。
func (m *MemoryHistoryRepository) ListLatest(_ context.Context, limit int) ([]HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.records) {
		limit = len(m.records)
	}

	results := make([]HistoryRecord, limit)
	copy(results, m.records[:limit])
	return results, nil
}

// Close 目前仅为满足接口，文件句柄在每次写入后立即关闭。
func (m *MemoryHistoryRepository) Close() error { return nil }

func (m *MemoryHistoryRepository) loadFromDisk() error {
	file, err := os.OpenFile(m.dataFile, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("读取历史日志失败: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var restored []HistoryRecord
	for scanner.Scan() {
		var record HistoryRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		restored = append([]HistoryRecord{record}, restored...)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("解析历史日志失败: %w", err)
	}

	if len(restored) > 512 {
		restored = restored[:512]
	}
	if len(restored) > 0 {
		m.records = restored
	}
	return nil
}

// SQLHistoryRepository 使用真实的 MySQL 数据库存储执行历史。
type SQLHistoryRepository struct {
	db *sql.DB
}

// NewSQLHistoryRepository 创建连接池并执行待应用的迁移。
func NewSQLHistoryRepository(ctx context.Context, cfg Config) (*SQLHistoryRepository, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	repo := &SQLHistoryRepository{db: db}
	if err := repo.runMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// Save 将执行记录写入 MySQL。
func (s *SQLHistoryRepository) Save(ctx context.Context, record HistoryRecord) error {
	const stmt = `INSERT INTO goal_history
        (goal, session_id, thought, reply, task_count, completed, observes, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, stmt,
		record.Goal,
		record.SessionID,
		record.Thought,
		record.Reply,
		record.TaskCount,
		record.Completed,
		record.Observes,
		record.CreatedAt,
	); err != nil {
		return fmt.Errorf("写入 MySQL 失败: %w", err)
	}
	return nil
}

// ListLatest 查询最近的若干条执行记录。
func (s *SQLHistoryRepository) ListLatest(ctx context.Context, limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `SELECT goal, session_id, thought, reply, task_count, completed, observes, created_at
        FROM goal_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询历史记录失败: %w", err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		var record HistoryRecord
		if err := rows.Scan(&record.Goal, &record.SessionID, &record.Thought, &record.Reply, &record.TaskCount, &record.Completed, &record.Observes, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("解析历史记录失败: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历历史记录失败: %w", err)
	}

	return records, nil
}

// Close 关闭底层数据库连接。
func (s *SQLHistoryRepository) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
