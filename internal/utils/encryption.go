package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// normalizeCost 非法的 cost 回退到默认值
func normalizeCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), normalizeCost(cost))
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword 校验密码
func VerifyPassword(password, hashedPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// NeedsRehash 哈希的 cost 与当前配置不一致时返回 true
func NeedsRehash(hashedPassword string, cost int) bool {
	current, err := bcrypt.Cost([]byte(hashedPassword))
	if err != nil {
		return true
	}
	return current != normalizeCost(cost)
}
