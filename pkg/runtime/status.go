package runtime

// Status is the result of one kernel forward pass. Only empty input batches
// and batch-count mismatches are recoverable; every other violation inside a
// kernel is fatal.
type Status int

const (
	StatusUnknown Status = iota - 1
	StatusSuccess
	StatusFailedInputEmpty
	StatusFailedBatchMismatch
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailedInputEmpty:
		return "input tensor array empty"
	case StatusFailedBatchMismatch:
		return "input and output batch mismatch"
	default:
		return "unknown"
	}
}

// ParseStatus is the result of constructing a kernel from a graph node.
// Anything but ParseSuccess aborts the build.
type ParseStatus int

const (
	ParseSuccess ParseStatus = iota
	ParseOpEmpty
	ParseParamMissingStride
	ParseParamMissingPadding
	ParseParamMissingKernelSize
	ParseParamMissingBias
	ParseParamMissingInChannels
	ParseParamMissingOutChannels
	ParseParamMissingDim
	ParseParamMissingExpr
	ParseParamMissingOutHW
	ParseParamMissingGroups
	ParseParamMissingDilation
	ParseParamMissingPaddingMode
	ParseAttrMissingBias
	ParseAttrMissingWeight
	ParseAttrMissingOutFeatures
)

func (s ParseStatus) String() string {
	switch s {
	case ParseSuccess:
		return "success"
	case ParseOpEmpty:
		return "operator empty"
	case ParseParamMissingStride:
		return "stride parameter missing"
	case ParseParamMissingPadding:
		return "padding parameter missing"
	case ParseParamMissingKernelSize:
		return "kernel_size parameter missing"
	case ParseParamMissingBias:
		return "bias parameter missing"
	case ParseParamMissingInChannels:
		return "in_channels parameter missing"
	case ParseParamMissingOutChannels:
		return "out_channels parameter missing"
	case ParseParamMissingDim:
		return "dim parameter missing"
	case ParseParamMissingExpr:
		return "expr parameter missing"
	case ParseParamMissingOutHW:
		return "output_size parameter missing"
	case ParseParamMissingGroups:
		return "groups parameter missing"
	case ParseParamMissingDilation:
		return "dilation parameter missing"
	case ParseParamMissingPaddingMode:
		return "padding_mode parameter missing"
	case ParseAttrMissingBias:
		return "bias attribute missing"
	case ParseAttrMissingWeight:
		return "weight attribute missing"
	case ParseAttrMissingOutFeatures:
		return "out_features attribute missing"
	default:
		return "unknown"
	}
}
