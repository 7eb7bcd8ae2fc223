package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/kotoba-app/kotoba/internal/api"
	"github.com/kotoba-app/kotoba/internal/integrate"
	"github.com/kotoba-app/kotoba/internal/svcctx"
)

// VocabularyEndpoint handles POST /api/integrate/vocabulary.
type VocabularyEndpoint struct{}

func (e *VocabularyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/integrate/vocabulary", e.handler
}

func (e *VocabularyEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Run a vocabulary integration action
//	@Description	Dispatch rebuild_all, get_stats, search, repair, or fix_example_romaji against the vocabulary collection
//	@Tags			integrate
//	@Accept			json
//	@Produce		json
//	@Param			request	body		integrate.Request	true	"Action request"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/integrate/vocabulary [post]
func (e *VocabularyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	runIntegrate(w, r, svcctx.VocabularyFrom(r.Context()))
}

func (e *VocabularyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return integrateCommand(getServerURL, "vocabulary", "/api/integrate/vocabulary")
}

// StructuresEndpoint handles POST /api/integrate/structures.
type StructuresEndpoint struct{}

func (e *StructuresEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/integrate/structures", e.handler
}

func (e *StructuresEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Run a structure integration action
//	@Description	Dispatch rebuild_all, get_stats, search, or repair against the structure collection
//	@Tags			integrate
//	@Accept			json
//	@Produce		json
//	@Param			request	body		integrate.Request	true	"Action request"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/integrate/structures [post]
func (e *StructuresEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	runIntegrate(w, r, svcctx.StructuresFrom(r.Context()))
}

func (e *StructuresEndpoint) Command(getServerURL func() string) *cobra.Command {
	return integrateCommand(getServerURL, "structures", "/api/integrate/structures")
}

// runIntegrate decodes the action envelope and dispatches it. Action-level
// failures come back as 200 with success=false; only transport and decode
// problems use HTTP error codes.
func runIntegrate(w http.ResponseWriter, r *http.Request, svc *integrate.Service) {
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "integration service not initialized")
		return
	}

	var req integrate.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	writeJSON(w, http.StatusOK, svc.Run(r.Context(), req))
}

func integrateCommand(getServerURL func() string, use, path string) *cobra.Command {
	var req integrate.Request
	cmd := &cobra.Command{
		Use:   use + " --action <action>",
		Short: "Run an integration action against the " + use + " collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var result map[string]any
			if err := client.Post(cmd.Context(), path, req, &result); err != nil {
				return err
			}
			return api.Output(result)
		},
	}
	cmd.Flags().StringVar(&req.Action, "action", "", "Action: rebuild_all, get_stats, search, repair, fix_example_romaji")
	cmd.Flags().StringVar(&req.Keyword, "keyword", "", "Search keyword (substring match)")
	cmd.Flags().StringVar(&req.Category, "category", "", "Category filter")
	cmd.Flags().IntVar(&req.Page, "page", 0, "Page number (search)")
	cmd.Flags().IntVar(&req.PageSize, "page-size", 0, "Page size (search)")
	cmd.Flags().StringVar(&req.OrderBy, "order-by", "", "Order field (search)")
	cmd.Flags().StringVar(&req.Order, "order", "", "Order direction: asc or desc")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}
