package auth

import (
	"sync"
	"time"
)

// RevocationList 已注销的 token ID,条目在 token 过期后失效
type RevocationList struct {
	entries *sync.Map // jti -> time.Time (过期时间)
	clock   func() time.Time
}

// NewRevocationList 创建注销列表
func NewRevocationList(clock func() time.Time) *RevocationList {
	if clock == nil {
		clock = time.Now
	}
	return &RevocationList{entries: &sync.Map{}, clock: clock}
}

// Revoke 注销 token 直到 expiresAt
func (r *RevocationList) Revoke(jti string, expiresAt time.Time) {
	r.entries.Store(jti, expiresAt)
}

// IsRevoked token 是否已注销
func (r *RevocationList) IsRevoked(jti string) bool {
	val, found := r.entries.Load(jti)
	if !found {
		return false
	}
	if r.clock().After(val.(time.Time)) {
		// token 本身已过期,无需继续记录
		r.entries.Delete(jti)
		return false
	}
	return true
}

// Prune 清理已过期的条目,返回清理数量
func (r *RevocationList) Prune() int {
	now := r.clock()
	n := 0
	r.entries.Range(func(key, value interface{}) bool {
		if now.After(value.(time.Time)) {
			r.entries.Delete(key)
			n++
		}
		return true
	})
	return n
}
