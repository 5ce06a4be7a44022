package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_single_approved_claim",
			SQL: `SELECT item_id, COUNT(*) FROM lost_found_claims
                  WHERE status = 'approved'
                  GROUP BY item_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_claimed_flag_matches_claimant",
			SQL: `SELECT id FROM lost_found_items
                  WHERE is_claimed <> (claimed_by IS NOT NULL)`,
		},
		{
			Name: "O3_claimed_item_has_winner",
			SQL: `SELECT i.id FROM lost_found_items i
                  WHERE i.is_claimed
                    AND NOT EXISTS (
                        SELECT 1 FROM lost_found_claims c
                        WHERE c.item_id = i.id
                          AND c.status = 'approved'
                          AND c.claimant_id = i.claimed_by)`,
		},
		{
			Name: "O4_approval_marks_item",
			SQL: `SELECT c.id FROM lost_found_claims c
                  JOIN lost_found_items i ON i.id = c.item_id
                  WHERE c.status = 'approved'
                    AND (NOT i.is_claimed OR i.claimed_by <> c.claimant_id)`,
		},
		{
			Name: "O5_no_duplicate_pending",
			SQL: `SELECT item_id, claimant_id, COUNT(*) FROM lost_found_claims
                  WHERE status = 'pending'
                  GROUP BY item_id, claimant_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O6_auto_reject_implies_claimed",
			SQL: `SELECT c.id FROM lost_found_claims c
                  JOIN lost_found_items i ON i.id = c.item_id
                  WHERE c.status = 'rejected'
                    AND c.review_notes = 'automatically rejected - item was claimed by another user'
                    AND NOT i.is_claimed`,
		},
		{
			Name: "O7_resolved_claims_reviewed",
			SQL: `SELECT id FROM lost_found_claims
                  WHERE status IN ('approved', 'rejected') AND reviewed_by IS NULL`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
