package endpoints

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kotoba-app/kotoba/internal/api"
	"github.com/kotoba-app/kotoba/internal/history"
	"github.com/kotoba-app/kotoba/internal/svcctx"
)

// Record is the API shape of one parse-history record.
type Record struct {
	ID        string             `json:"id"`
	Owner     string             `json:"owner,omitempty"`
	UserInput string             `json:"userInput"`
	Status    string             `json:"status"`
	Source    string             `json:"source,omitempty"`
	Sentences []history.Sentence `json:"sentences"`
	CreatedAt string             `json:"createdAt"`
}

func recordView(rec history.ParseRecord) Record {
	sentences := rec.Sentences
	if sentences == nil {
		sentences = []history.Sentence{}
	}
	return Record{
		ID:        rec.DocID,
		Owner:     rec.Owner,
		UserInput: rec.UserInput,
		Status:    rec.Status,
		Source:    rec.Source,
		Sentences: sentences,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
}

// RecordListResponse is one page of history records.
type RecordListResponse struct {
	Records  []Record `json:"records"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
}

// ListHistoryEndpoint handles GET /api/history.
type ListHistoryEndpoint struct{}

func (e *ListHistoryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/history", e.handler
}

func (e *ListHistoryEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List parse-history records
//	@Description	Returns records newest first, optionally scoped to an owner
//	@Tags			history
//	@Produce		json
//	@Param			owner		query		string	false	"Owner filter"
//	@Param			page		query		int		false	"Page number (default 1)"
//	@Param			pageSize	query		int		false	"Page size (default 20)"
//	@Success		200			{object}	RecordListResponse
//	@Failure		500			{object}	ErrorResponse
//	@Failure		503			{object}	ErrorResponse
//	@Router			/api/history [get]
func (e *ListHistoryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.HistoryFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "history store not initialized")
		return
	}

	owner := r.URL.Query().Get("owner")
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 20)

	records, err := store.List(r.Context(), owner, pageSize, (page-1)*pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := store.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := RecordListResponse{
		Records:  make([]Record, 0, len(records)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, rec := range records {
		resp.Records = append(resp.Records, recordView(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListHistoryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var owner string
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List parse-history records",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := fmt.Sprintf("/api/history?page=%d&pageSize=%d", page, pageSize)
			if owner != "" {
				path += "&owner=" + owner
			}
			var resp RecordListResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner filter")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Page size")
	return cmd
}

// GetHistoryEndpoint handles GET /api/history/{id}.
type GetHistoryEndpoint struct{}

func (e *GetHistoryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/history/{id}", e.handler
}

func (e *GetHistoryEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a parse-history record
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Record ID"
//	@Success		200	{object}	Record
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/history/{id} [get]
func (e *GetHistoryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "record id is required")
		return
	}

	store := svcctx.HistoryFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "history store not initialized")
		return
	}

	rec, err := store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recordView(*rec))
}

func (e *GetHistoryEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a parse-history record by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var rec Record
			if err := client.Get(cmd.Context(), "/api/history/"+args[0], &rec); err != nil {
				return err
			}
			return api.Output(rec)
		},
	}
}

// DeleteHistoryEndpoint handles DELETE /api/history/{id}.
type DeleteHistoryEndpoint struct{}

func (e *DeleteHistoryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/history/{id}", e.handler
}

func (e *DeleteHistoryEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a parse-history record
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Record ID"
//	@Success		200	{object}	map[string]bool
//	@Failure		400	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/history/{id} [delete]
func (e *DeleteHistoryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "record id is required")
		return
	}

	store := svcctx.HistoryFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "history store not initialized")
		return
	}

	if err := store.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (e *DeleteHistoryEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a parse-history record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/history/"+args[0]); err != nil {
				return err
			}
			fmt.Println("deleted", args[0])
			return nil
		},
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
