// Package share provides interfaces for types to be in compliance with.
package share

import (
	"context"
	"sync"
	"time"

	"github.com/vmartynov/vm_go_code_drop/internal/service/modelshare"
)

// Processor defines a set of methods for types implementing Processor.
type Processor interface {
	Upload(ctx context.Context, fileName string, payload []byte, ttl time.Duration) (code string, err error)
	Download(ctx context.Context, code string) (file modelshare.File, err error)
	Count(ctx context.Context) (n int, err error)
	StartSweeper(ctx context.Context, wg *sync.WaitGroup)
}
