// Package types contains the response shapes shared by the HTTP API and its
// clients.
package types

import "github.com/okian/pitchtrace/internal/domain/model"

// PlayerRef identifies a player in list responses.
type PlayerRef struct {
	PlayerID int64 `json:"player_id"`
}

// PlayerRefs wraps ids in PlayerRef values, keeping their order.
func PlayerRefs(ids []int64) []PlayerRef {
	out := make([]PlayerRef, len(ids))
	for i, id := range ids {
		out[i] = PlayerRef{PlayerID: id}
	}
	return out
}

// UploadResult is returned by synchronous uploads.
type UploadResult struct {
	Message      string                 `json:"message"`
	RowsInserted int                    `json:"rows_inserted"`
	Calculated   []model.SessionSummary `json:"calculated"`
}

// ImportResult is returned by tracker CSV imports.
type ImportResult struct {
	Message           string                 `json:"message"`
	RowsInserted      int                    `json:"rows_inserted"`
	PlayersCalculated int                    `json:"players_calculated"`
	Filename          string                 `json:"filename"`
	Calculated        []model.SessionSummary `json:"calculated"`
}

// Ack acknowledges an asynchronous or duplicate upload.
type Ack struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	BatchID   string `json:"batch_id,omitempty"`
}
