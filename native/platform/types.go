package platform

// Registry is the singleton record of linked module addresses. It is written
// exactly once by InitializePlatform and read by every other module.
type Registry struct {
	Verification    [20]byte `json:"verification"`
	Crowdfunding    [20]byte `json:"crowdfunding"`
	Rewards         [20]byte `json:"rewards"`
	Escrow          [20]byte `json:"escrow"`
	CoEp            [20]byte `json:"coEp"`
	VerificationExt [20]byte `json:"verificationExt"`
	Initialized     bool     `json:"initialized"`
}

// Clone returns a copy of the registry so callers can safely mutate the copy
// without affecting the stored instance.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return &Registry{}
	}
	clone := *r
	return &clone
}

// Stats summarises the platform singletons for read-only consumers. Reading an
// uninitialized registry yields zero values rather than an error.
type Stats struct {
	Initialized bool   `json:"initialized"`
	AdminCount  uint64 `json:"adminCount"`
	Paused      bool   `json:"paused"`
}
