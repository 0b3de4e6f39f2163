package service

import (
	"github.com/MochaChoco/my-site/internal/backend/memory"
	logctx "github.com/MochaChoco/my-site/pkg/log"
)

func memoryBackend() *memory.Memory {
	return memory.New(memory.WithDelay(0), memory.WithLogger(logctx.Nop()))
}
