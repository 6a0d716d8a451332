package utils

import "github.com/google/uuid"

// NewID 生成 36 位 UUID 主键
func NewID() string { return uuid.NewString() }
