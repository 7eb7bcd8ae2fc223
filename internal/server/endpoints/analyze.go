package endpoints

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kotoba-app/kotoba/internal/api"
	"github.com/kotoba-app/kotoba/internal/ingest"
	"github.com/kotoba-app/kotoba/internal/svcctx"
)

// maxUploadBytes bounds analyze uploads (PDF scans run large).
const maxUploadBytes = 64 << 20

// AnalyzeRequest is the JSON body for text analysis.
type AnalyzeRequest struct {
	Text   string `json:"text"`
	Owner  string `json:"owner,omitempty"`
	Source string `json:"source,omitempty"`
}

// AnalyzeEndpoint handles POST /api/analyze. It accepts either a JSON body
// with text or a multipart upload with an image/PDF file.
type AnalyzeEndpoint struct{}

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyze", e.handler
}

func (e *AnalyzeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Analyze Japanese text or an uploaded document
//	@Description	Runs LLM sentence analysis and stores the result as a parse-history record. Accepts JSON {text} or a multipart "file" upload (image or PDF).
//	@Tags			analyze
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	ingest.Result
//	@Failure		400	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/analyze [post]
func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ingestor := svcctx.IngestorFrom(r.Context())
	if ingestor == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestor not initialized")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		e.handleUpload(w, r, ingestor)
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.Source == "" {
		req.Source = "text"
	}

	result, err := ingestor.Text(r.Context(), req.Owner, req.Source, req.Text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *AnalyzeEndpoint) handleUpload(w http.ResponseWriter, r *http.Request, ingestor *ingest.Ingestor) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	owner := r.FormValue("owner")
	source := r.FormValue("source")
	if source == "" {
		source = "upload"
	}
	name := header.Filename

	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		tmp, err := os.CreateTemp("", "kotoba-upload-*.pdf")
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		defer os.Remove(tmp.Name())
		if _, err := io.Copy(tmp, file); err != nil {
			tmp.Close()
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		tmp.Close()

		result, err := ingestor.PDF(r.Context(), owner, source, tmp.Name())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	mime := header.Header.Get("Content-Type")
	result, err := ingestor.Image(r.Context(), owner, source, name, data, mime)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	var owner, source string
	cmd := &cobra.Command{
		Use:   "analyze <text>",
		Short: "Analyze Japanese text and store the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var result ingest.Result
			req := AnalyzeRequest{Text: args[0], Owner: owner, Source: source}
			if err := client.Post(cmd.Context(), "/api/analyze", req, &result); err != nil {
				return err
			}
			return api.Output(result)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Record owner")
	cmd.Flags().StringVar(&source, "source", "text", "Record source label")
	return cmd
}
