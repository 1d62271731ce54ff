// FILE: launchconf/launch/registry.go
package launch

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// RewardSample is one scored generation.
type RewardSample struct {
	Prompt      string
	Response    string
	GroundTruth string
}

// RewardFn scores a sample, higher is better. Implementations must be
// safe for concurrent use; the trainer scores batches in parallel.
type RewardFn func(sample RewardSample) float64

var rewardRegistry = struct {
	mu  sync.RWMutex
	fns map[string]RewardFn
}{fns: make(map[string]RewardFn)}

// RegisterReward adds a named scorer. Registering an empty name, a nil
// function, or a name already taken is an error; scorers are process-wide
// and never silently replaced.
func RegisterReward(name string, fn RewardFn) error {
	if name == "" {
		return fmt.Errorf("reward function name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("reward function %q must not be nil", name)
	}
	rewardRegistry.mu.Lock()
	defer rewardRegistry.mu.Unlock()
	if _, exists := rewardRegistry.fns[name]; exists {
		return fmt.Errorf("reward function %q already registered", name)
	}
	rewardRegistry.fns[name] = fn
	return nil
}

// MustRegisterReward is RegisterReward for init-time registration.
func MustRegisterReward(name string, fn RewardFn) {
	if err := RegisterReward(name, fn); err != nil {
		panic(fmt.Sprintf("launch: %v", err))
	}
}

// LookupReward returns the scorer registered under name.
func LookupReward(name string) (RewardFn, bool) {
	rewardRegistry.mu.RLock()
	defer rewardRegistry.mu.RUnlock()
	fn, ok := rewardRegistry.fns[name]
	return fn, ok
}

// RewardNames lists registered scorers in sorted order.
func RewardNames() []string {
	rewardRegistry.mu.RLock()
	defer rewardRegistry.mu.RUnlock()
	names := make([]string, 0, len(rewardRegistry.fns))
	for name := range rewardRegistry.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	MustRegisterReward("exact_match", func(s RewardSample) float64 {
		if strings.TrimSpace(s.Response) == strings.TrimSpace(s.GroundTruth) {
			return 1.0
		}
		return 0.0
	})
	MustRegisterReward("always_zero", func(RewardSample) float64 {
		return 0.0
	})
}
