package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/postpilot/engine/pkg/cooldown"
)

// trimPrecision keeps cooldown reasons readable for operators.
const trimPrecision = time.Second

// CooldownChecker implements EligibilityChecker with a per-account,
// per-destination cooldown gate. A user who just posted to a destination
// must wait out the window before the next attempt is allowed.
type CooldownChecker struct {
	gate *cooldown.Gate
}

// NewCooldownChecker creates a checker over the given gate.
func NewCooldownChecker(gate *cooldown.Gate) (*CooldownChecker, error) {
	if gate == nil {
		return nil, ErrDependencyNil
	}
	return &CooldownChecker{gate: gate}, nil
}

// CanPost implements EligibilityChecker. An allowed check consumes the
// cooldown slot, so callers must only invoke it when they intend to post.
func (c *CooldownChecker) CanPost(ctx context.Context, userID, destination string) (Eligibility, error) {
	res, err := c.gate.Allow(ctx, cooldownKey(userID, destination))
	if err != nil {
		return Eligibility{}, fmt.Errorf("failed to check posting cooldown: %w", err)
	}
	if !res.Allowed {
		return Eligibility{
			CanPost: false,
			Reason:  fmt.Sprintf("cooldown: next post to %s allowed in %s", destination, res.RetryAfter.Round(trimPrecision)),
		}, nil
	}
	return Eligibility{CanPost: true}, nil
}

func cooldownKey(userID, destination string) string {
	return userID + ":" + destination
}
