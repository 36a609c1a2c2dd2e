package dataprocessing

import (
	"context"
	"log/slog"

	"banvicdash/pkg/contracts/domain"
)

// Joiner builds the enriched transaction and proposal views from the base
// tables. Joins are left joins: transactions without a matching account,
// branch or customer are kept with empty enrichment and counted.
type Joiner struct {
	unknown string
	logger  *slog.Logger
}

// NewJoiner creates a joiner that uses unknown for blank statuses and
// missing collaborator codes.
func NewJoiner(unknown string, logger *slog.Logger) *Joiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Joiner{unknown: unknown, logger: logger.With(slog.String("component", "joiner"))}
}

// Join enriches every transaction and normalizes proposal statuses.
// When a lookup table repeats a key, the first row wins.
func (j *Joiner) Join(ctx context.Context, tables *domain.Tables) ([]domain.EnrichedTransaction, []domain.CreditProposal, domain.JoinStats) {
	accounts := make(map[string]domain.Account, len(tables.Accounts))
	dupAccounts := 0
	for _, a := range tables.Accounts {
		if _, ok := accounts[a.Number]; ok {
			dupAccounts++
			continue
		}
		accounts[a.Number] = a
	}

	branches := make(map[string]domain.Branch, len(tables.Branches))
	for _, b := range tables.Branches {
		if _, ok := branches[b.Code]; !ok {
			branches[b.Code] = b
		}
	}

	customers := make(map[string]domain.Customer, len(tables.Customers))
	for _, c := range tables.Customers {
		if _, ok := customers[c.Code]; !ok {
			customers[c.Code] = c
		}
	}

	stats := domain.JoinStats{Transactions: len(tables.Transactions)}
	txs := make([]domain.EnrichedTransaction, len(tables.Transactions))

	for i, t := range tables.Transactions {
		e := domain.EnrichedTransaction{Transaction: t, CollaboratorCode: j.unknown}

		if acc, ok := accounts[t.AccountNumber]; ok {
			e.AccountMatched = true
			e.BranchCode = acc.BranchCode
			e.CustomerCode = acc.CustomerCode
			if acc.CollaboratorCode != "" {
				e.CollaboratorCode = acc.CollaboratorCode
			}
		} else {
			stats.UnmatchedAccount++
		}

		if b, ok := branches[e.BranchCode]; ok && e.AccountMatched {
			e.BranchMatched = true
			e.BranchName = b.Name
		} else {
			stats.UnmatchedBranch++
		}

		if c, ok := customers[e.CustomerCode]; ok && e.AccountMatched {
			e.CustomerMatched = true
			e.CustomerFirst = c.FirstName
			e.CustomerLast = c.LastName
		} else {
			stats.UnmatchedCustomer++
		}

		if e.CollaboratorCode == j.unknown {
			stats.UnknownCollaborator++
		}

		txs[i] = e
	}

	proposals := make([]domain.CreditProposal, len(tables.Proposals))
	for i, p := range tables.Proposals {
		if p.Status == "" {
			p.Status = j.unknown
		}
		proposals[i] = p
	}

	if stats.UnmatchedAccount+stats.UnmatchedBranch+stats.UnmatchedCustomer > 0 || dupAccounts > 0 {
		j.logger.WarnContext(ctx, "transactions with unmatched joins kept with empty enrichment",
			slog.Int("transactions", stats.Transactions),
			slog.Int("unmatched_account", stats.UnmatchedAccount),
			slog.Int("unmatched_branch", stats.UnmatchedBranch),
			slog.Int("unmatched_customer", stats.UnmatchedCustomer),
			slog.Int("duplicate_accounts", dupAccounts))
	}

	return txs, proposals, stats
}
