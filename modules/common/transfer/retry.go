package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"syscall"
	"time"

	"family-portrait-server/modules/common/apperr"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2000 * time.Millisecond
)

// Policy - 재시도 정책 (최대 시도 횟수, 선형 backoff 기준 지연)
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep - 대기 함수 (테스트에서 교체)
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy - 3회 시도, 2000ms × 시도 번호 대기
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Sleep:       SleepContext,
	}
}

// SleepContext - ctx 취소를 존중하는 대기
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transient 네트워크 에러 시그니처 (소문자)
var retryableSignatures = []string{
	"econnreset",
	"connection reset",
	"etimedout",
	"timed out",
	"enotfound",
	"no such host",
	"socket hang up",
	"unexpected eof",
	"broken pipe",
	"network",
	"timeout",
	"abort",
}

// IsRetryable - transient 네트워크 에러인지 판별
// 시그니처에 없는 에러는 즉시 실패 처리된다
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ETIMEDOUT) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, signature := range retryableSignatures {
		if strings.Contains(errStr, signature) {
			return true
		}
	}
	return false
}

// WithRetry - 재시도 가능한 에러일 때만 정책에 따라 재시도하는 헬퍼 함수
// attempt N(>1) 직전에 BaseDelay × (N-1) 만큼 대기 (마지막 시도 후에는 대기 안 함)
// 최종 실패 시 작업 이름과 마지막 원인을 담은 단일 TransferError 반환
func WithRetry[T any](
	ctx context.Context,
	op string,
	policy Policy,
	isRetryable func(error) bool,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	if isRetryable == nil {
		isRetryable = IsRetryable
	}

	var lastErr error
	attempt := 0
	for attempt = 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := policy.BaseDelay * time.Duration(attempt-1)
			log.Printf("   ⏳ [Transfer] %s: waiting %v before attempt %d/%d", op, wait, attempt, maxAttempts)
			if err := sleep(ctx, wait); err != nil {
				return zero, apperr.New(apperr.KindTransfer, op,
					fmt.Errorf("cancelled while waiting for retry (last error: %v): %w", lastErr, err))
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				log.Printf("✅ [Transfer] %s succeeded on attempt %d/%d", op, attempt, maxAttempts)
			}
			return result, nil
		}
		lastErr = err

		// 재시도 불가 에러면 바로 반환
		if !isRetryable(err) {
			log.Printf("❌ [Transfer] %s failed with non-retryable error: %v", op, err)
			break
		}

		log.Printf("⚠️  [Transfer] %s hit transient error on attempt %d/%d: %v", op, attempt, maxAttempts, err)
	}

	if attempt > maxAttempts {
		attempt = maxAttempts
	}
	return zero, apperr.New(apperr.KindTransfer, op,
		fmt.Errorf("failed after %d attempt(s): %w", attempt, lastErr))
}
