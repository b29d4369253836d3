package cluster

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clausebank/precedentd/internal/domain"
)

// scanResults maps query rows to domain results. The jsonb columns tolerate
// NULL and historical shapes: query_history entries may carry the message
// under "message", "query", or "response".
func scanResults(rows pgx.Rows) ([]domain.RetrievalResult, error) {
	defer rows.Close()

	var out []domain.RetrievalResult
	for rows.Next() {
		var (
			id          string
			tenantID    string
			textContent string
			codifiedRaw []byte
			historyRaw  []byte
			docCount    *int
			lastUpdated *time.Time
			relevance   float64
		)
		if err := rows.Scan(
			&id, &tenantID, &textContent, &codifiedRaw, &historyRaw,
			&docCount, &lastUpdated, &relevance,
		); err != nil {
			return nil, fmt.Errorf("scan cluster row: %w", err)
		}

		codified, err := parseCodified(codifiedRaw)
		if err != nil {
			return nil, fmt.Errorf("cluster %s: %w", id, err)
		}
		history, err := parseHistory(historyRaw)
		if err != nil {
			return nil, fmt.Errorf("cluster %s: %w", id, err)
		}

		c := domain.ClauseCluster{
			ID:           id,
			TenantID:     tenantID,
			TextContent:  textContent,
			CodifiedData: codified,
			QueryHistory: history,
			LastUpdated:  lastUpdated,
		}
		if docCount != nil {
			c.DocCount = *docCount
		}
		out = append(out, domain.RetrievalResult{Cluster: c, Score: relevance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster rows: %w", err)
	}
	return out, nil
}

func parseCodified(raw []byte) (domain.CodifiedData, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var data domain.CodifiedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse codified_data: %w", err)
	}
	return data, nil
}

// historyEntry is the persisted shape of a dialogue entry.
type historyEntry struct {
	Role     string `json:"role"`
	Message  string `json:"message"`
	Query    string `json:"query"`
	Response string `json:"response"`
	Date     string `json:"date"`
}

func parseHistory(raw []byte) ([]domain.DialogueEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var entries []historyEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse query_history: %w", err)
	}
	out := make([]domain.DialogueEntry, 0, len(entries))
	for _, e := range entries {
		msg := e.Message
		if msg == "" {
			msg = e.Query
		}
		if msg == "" {
			msg = e.Response
		}
		out = append(out, domain.DialogueEntry{Role: e.Role, Message: msg, Date: e.Date})
	}
	return out, nil
}
