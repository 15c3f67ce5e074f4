/*
 * @module service/session/redis_store
 * @description Redis会话存储实现，多实例部署时共享分步流程的会话状态
 * @architecture 分层架构 - 会话状态层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow Save(JSON+TTL) -> Get -> Delete/键过期
 * @rules Redis键TTL带宽限期，留给清理服务回收工作目录的窗口
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/init.go, service/cleanup
 */

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"runplan-service/service/models"
)

const sessionKeyPrefix = "runplan:session:"

// redisGrace Redis键在会话过期后保留的宽限期，清理服务在此窗口内回收工作目录
const redisGrace = time.Hour

// RedisStore Redis会话存储
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 从环境变量创建Redis会话存储
func NewRedisStore() (*RedisStore, error) {
	host := getEnvWithDefault("REDIS_HOST", "localhost")
	port := getEnvWithDefault("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		fmt.Sscanf(dbStr, "%d", &db)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	slog.Info("Redis会话存储初始化成功", "redis_host", host, "redis_port", port)
	return &RedisStore{client: client}, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Save 序列化为JSON写入，TTL为会话剩余时长加宽限期
func (s *RedisStore) Save(ctx context.Context, sess *models.PlanSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("会话序列化失败: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt) + redisGrace
	if ttl <= 0 {
		return fmt.Errorf("会话已过期，拒绝保存: %s", sess.ID)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("会话写入失败: %w", err)
	}
	return nil
}

// Get 读取会话，键缺失或已过期返回ErrNotFound
func (s *RedisStore) Get(ctx context.Context, id string) (*models.PlanSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("会话读取失败: %w", err)
	}

	var sess models.PlanSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("会话反序列化失败: %w", err)
	}
	if sess.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Delete 删除会话并返回其工作目录
func (s *RedisStore) Delete(ctx context.Context, id string) (string, error) {
	key := sessionKey(id)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("会话读取失败: %w", err)
	}

	var sess models.PlanSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return "", fmt.Errorf("会话反序列化失败: %w", err)
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return "", fmt.Errorf("会话删除失败: %w", err)
	}
	return sess.WorkDir, nil
}

// PurgeExpired 扫描并清除已过期但仍在宽限期内的会话键
func (s *RedisStore) PurgeExpired(ctx context.Context, now time.Time) ([]string, error) {
	var workDirs []string
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return workDirs, fmt.Errorf("会话读取失败: %w", err)
		}

		var sess models.PlanSession
		if err := json.Unmarshal(data, &sess); err != nil {
			// 坏数据直接删除
			s.client.Del(ctx, key)
			continue
		}
		if !sess.Expired(now) {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return workDirs, fmt.Errorf("会话删除失败: %w", err)
		}
		if sess.WorkDir != "" {
			workDirs = append(workDirs, sess.WorkDir)
		}
	}
	if err := iter.Err(); err != nil {
		return workDirs, fmt.Errorf("会话扫描失败: %w", err)
	}
	return workDirs, nil
}

// Close 关闭Redis客户端
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
