package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"affiliate-api/internal/database"
	"affiliate-api/pkg/logging"
)

// ReplayGuard 账单 webhook 事件的快速去重
// 只是快速路径：真正的幂等保证在 commission_transactions 的唯一索引上，
// 这里命中只是省掉一次数据库往返。Redis 可用时用 SETNX（多实例共享），
// 否则退化为进程内 map + 定期清理
type ReplayGuard struct {
	seenEvents      map[string]time.Time
	mutex           sync.RWMutex
	cleanupInterval time.Duration
	eventTTL        time.Duration
	stopCleanup     chan bool
}

// NewReplayGuard 创建事件去重实例
func NewReplayGuard() *ReplayGuard {
	rg := &ReplayGuard{
		seenEvents:      make(map[string]time.Time),
		cleanupInterval: time.Hour,      // 每小时清理一次
		eventTTL:        time.Hour * 24, // 事件记录保存24小时
		stopCleanup:     make(chan bool),
	}

	// 启动清理协程
	go rg.startCleanupRoutine()

	return rg
}

// Seen 检查事件是否已经处理过，未见过时记录之
// 返回 true 表示重复投递，调用方可以直接回 200
func (rg *ReplayGuard) Seen(eventID string) bool {
	if eventID == "" {
		// 没有事件ID无法判断，放行（唯一索引兜底）
		return false
	}

	// Redis fast path shared across instances
	if database.RedisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		key := fmt.Sprintf("billing_event:%s", eventID)
		set, err := database.RedisClient.SetNX(ctx, key, "1", rg.eventTTL).Result()
		if err == nil {
			if !set {
				logging.Warnf("Duplicate billing event (redis) - event: %s", eventID)
			}
			return !set
		}
		// Redis 出错时退回进程内判断
		logging.Errorf("Replay guard redis error, falling back to local map: %v", err)
	}

	rg.mutex.Lock()
	defer rg.mutex.Unlock()

	if seenAt, exists := rg.seenEvents[eventID]; exists {
		logging.Warnf("Duplicate billing event - event: %s, previously seen at: %v", eventID, seenAt)
		return true
	}

	rg.seenEvents[eventID] = time.Now()
	return false
}

// startCleanupRoutine 启动清理协程
func (rg *ReplayGuard) startCleanupRoutine() {
	ticker := time.NewTicker(rg.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rg.cleanup()
		case <-rg.stopCleanup:
			return
		}
	}
}

// cleanup 清理过期的事件记录
func (rg *ReplayGuard) cleanup() {
	rg.mutex.Lock()
	defer rg.mutex.Unlock()

	now := time.Now()
	initialCount := len(rg.seenEvents)

	for eventID, seenAt := range rg.seenEvents {
		if now.Sub(seenAt) > rg.eventTTL {
			delete(rg.seenEvents, eventID)
		}
	}

	cleanedCount := initialCount - len(rg.seenEvents)
	if cleanedCount > 0 {
		logging.Infof("Replay guard cleanup: removed %d expired events, remaining: %d", cleanedCount, len(rg.seenEvents))
	}
}

// Forget 撤销一次记录，处理失败时调用，让重投递可以走完整流程
func (rg *ReplayGuard) Forget(eventID string) {
	if eventID == "" {
		return
	}

	if database.RedisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		database.RedisClient.Del(ctx, fmt.Sprintf("billing_event:%s", eventID))
	}

	rg.mutex.Lock()
	defer rg.mutex.Unlock()
	delete(rg.seenEvents, eventID)
}

// Clear 清空所有记录（用于测试）
func (rg *ReplayGuard) Clear() {
	rg.mutex.Lock()
	defer rg.mutex.Unlock()

	rg.seenEvents = make(map[string]time.Time)
}

// Stop 停止清理协程
func (rg *ReplayGuard) Stop() {
	close(rg.stopCleanup)
}
