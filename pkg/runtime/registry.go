package runtime

import (
	"github.com/itohio/tinyinfer/pkg/logger"
)

// registry maps operator-type strings to kernel constructors. It is filled by
// the kernel package's init functions and read-only afterwards.
var registry = make(map[string]Creator)

// RegisterCreator adds a kernel constructor for an operator type. Duplicate
// registration is fatal.
func RegisterCreator(opType string, creator Creator) {
	if creator == nil {
		logger.Log.Fatal().Str("type", opType).Msg("kernel creator is nil")
	}
	if _, ok := registry[opType]; ok {
		logger.Log.Fatal().Str("type", opType).Msg("kernel type already registered")
	}
	registry[opType] = creator
}

// CreateKernel instantiates the kernel for a graph node through the registry.
// An unknown operator type or a failed parse is fatal.
func CreateKernel(op *Operator) Kernel {
	if op == nil {
		logger.Log.Fatal().Msg("operator is nil")
	}
	creator, ok := registry[op.Type]
	if !ok {
		logger.Log.Fatal().Str("type", op.Type).Msg("kernel type not registered")
	}
	kernel, status := creator(op)
	if status != ParseSuccess {
		logger.Log.Fatal().Str("type", op.Type).Str("op", op.Name).Stringer("status", status).Msg("kernel create failed")
	}
	return kernel
}

// RegisteredTypes returns the operator types known to the registry.
func RegisteredTypes() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}
