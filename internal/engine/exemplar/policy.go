// internal/engine/exemplar/policy.go
package exemplar

import (
	"fmt"
	"math"

	apperrors "listing-grader/internal/common/errors"
)

// DefaultTopN applies when neither topN nor topPercent is given.
const DefaultTopN = 20

// Policy decides how many listings per category become exemplars.
// At most one of TopN and TopPercent may be set.
type Policy struct {
	TopN       *int     `json:"topN,omitempty"`
	TopPercent *float64 `json:"topPercent,omitempty"`
}

// PolicyFrom converts zero-means-unset config values into a Policy.
func PolicyFrom(topN int, topPercent float64) Policy {
	var p Policy
	if topN != 0 {
		n := topN
		p.TopN = &n
	}
	if topPercent != 0 {
		pct := topPercent
		p.TopPercent = &pct
	}
	return p
}

func (p Policy) Validate() error {
	if p.TopN != nil && p.TopPercent != nil {
		return apperrors.NewConfigError("topN and topPercent are mutually exclusive")
	}
	if p.TopN != nil && *p.TopN <= 0 {
		return apperrors.NewConfigError(fmt.Sprintf("topN must be positive, got %d", *p.TopN))
	}
	if p.TopPercent != nil && (*p.TopPercent <= 0 || *p.TopPercent > 100) {
		return apperrors.NewConfigError(fmt.Sprintf("topPercent must be in (0,100], got %g", *p.TopPercent))
	}
	return nil
}

// Normalized fills in the default topN when the policy is empty.
func (p Policy) Normalized() Policy {
	if p.TopN == nil && p.TopPercent == nil {
		n := DefaultTopN
		return Policy{TopN: &n}
	}
	return p
}

// Size is the number of ranked listings to keep for a category of the given
// size, before best sellers are added.
func (p Policy) Size(categorySize int) int {
	if categorySize <= 0 {
		return 0
	}
	p = p.Normalized()
	var n int
	if p.TopPercent != nil {
		// smallest n with n/size >= pct/100
		n = int(math.Ceil(*p.TopPercent*float64(categorySize)/100 - 1e-9))
		if n < 1 {
			n = 1
		}
	} else {
		n = *p.TopN
	}
	if n > categorySize {
		n = categorySize
	}
	return n
}

// Criteria describes the policy for artifact metadata.
func (p Policy) Criteria() string {
	p = p.Normalized()
	if p.TopPercent != nil {
		return fmt.Sprintf("top %g%% by quality score per category", *p.TopPercent)
	}
	return fmt.Sprintf("top %d by quality score per category", *p.TopN)
}
