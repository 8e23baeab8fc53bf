// Package timeout defines centralized timeout constants for AI operations.
// Package timeout 定义 AI 操作的集中式超时常量。
package timeout

import "time"

// AI operation timeout constants.
// AI 操作超时常量。
const (
	// GenerateTimeout is the timeout for a single generation call, retries included.
	// GenerateTimeout 是单次生成调用（含重试）的超时时间。
	GenerateTimeout = 2 * time.Minute

	// SafetyTimeout is the timeout for a safety check.
	// SafetyTimeout 是安全检查的超时时间。
	SafetyTimeout = 30 * time.Second

	// EmbeddingTimeout is the timeout for embedding generation.
	// EmbeddingTimeout 是向量生成的超时时间。
	EmbeddingTimeout = 30 * time.Second

	// RequestTimeout bounds one HTTP request to the core.
	// RequestTimeout 是单个 HTTP 请求的超时时间。
	RequestTimeout = 3 * time.Minute

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	// MaxTruncateLength 是日志中字符串截断的最大长度。
	MaxTruncateLength = 200
)
