package services

import (
	"context"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// TeamNamePolicy decides which team names count as the same team.
type TeamNamePolicy string

const (
	// PolicyExact compares trimmed names byte for byte.
	PolicyExact TeamNamePolicy = "exact"
	// PolicyCaseInsensitive lower-cases names before comparing.
	PolicyCaseInsensitive TeamNamePolicy = "case-insensitive"
)

func ParseTeamNamePolicy(value string) TeamNamePolicy {
	if TeamNamePolicy(strings.ToLower(strings.TrimSpace(value))) == PolicyCaseInsensitive {
		return PolicyCaseInsensitive
	}
	return PolicyExact
}

// Key is the digest stored in the unique team_key column. Hashing keeps the
// comparison independent of the database collation.
func (p TeamNamePolicy) Key(teamName string) string {
	name := strings.TrimSpace(teamName)
	if p == PolicyCaseInsensitive {
		name = strings.ToLower(name)
	}
	sum := blake2b.Sum256([]byte(name))
	return hex.EncodeToString(sum[:])
}

// DuplicateChecker is the fast-path lookup run before insert. The unique
// index stays authoritative for concurrent submissions.
type DuplicateChecker struct {
	repo   SubmissionRepository
	policy TeamNamePolicy
}

func NewDuplicateChecker(repo SubmissionRepository, policy TeamNamePolicy) *DuplicateChecker {
	if policy == "" {
		policy = PolicyExact
	}
	return &DuplicateChecker{repo: repo, policy: policy}
}

func (d *DuplicateChecker) Policy() TeamNamePolicy { return d.policy }

func (d *DuplicateChecker) Key(teamName string) string { return d.policy.Key(teamName) }

func (d *DuplicateChecker) Exists(ctx context.Context, teamName string) (bool, error) {
	return d.repo.ExistsByTeamKey(ctx, d.Key(teamName))
}
