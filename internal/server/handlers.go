package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"semkb/internal/domain"
)

const maxUploadBytes = 32 << 20

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type createIndexRequest struct {
	IndexName string `json:"index_name"`
}

type createIndexResponse struct {
	IndexName string `json:"index_name"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type listIndexesResponse struct {
	Indexes []string `json:"indexes"`
	Count   int      `json:"count"`
}

type recordCountResponse struct {
	IndexName   string `json:"index_name"`
	RecordCount int    `json:"record_count"`
}

type encodeDocRequest struct {
	DocumentPath string         `json:"document_path"`
	IndexName    string         `json:"index_name"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type encodeDocResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	IndexName    string `json:"index_name"`
	DocumentPath string `json:"document_path,omitempty"`
	ChunkCount   int    `json:"chunk_count"`
	TokenCounts  []int  `json:"token_counts"`
}

type uploadDocResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	IndexName   string `json:"index_name"`
	Filename    string `json:"filename"`
	ChunkCount  int    `json:"chunk_count"`
	TokenCounts []int  `json:"token_counts"`
}

type encodeBatchRequest struct {
	DirectoryPath string   `json:"directory_path"`
	IndexName     string   `json:"index_name"`
	FilePatterns  []string `json:"file_patterns"`
}

type encodeBatchResponse struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	IndexName       string `json:"index_name"`
	DocumentsQueued int    `json:"documents_queued"`
}

type encodeLlmsTxtRequest struct {
	URL       string `json:"llms_txt_url"`
	IndexName string `json:"index_name"`
}

type encodeLlmsTxtResponse struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	IndexName       string `json:"index_name"`
	DocumentsQueued int    `json:"documents_queued"`
	SourceURL       string `json:"source_url"`
}

type queryRequest struct {
	Query     string `json:"query"`
	IndexName string `json:"index_name"`
	TopK      int    `json:"top_k"`
}

type queryResponse struct {
	Status    string              `json:"status"`
	Message   string              `json:"message"`
	IndexName string              `json:"index_name"`
	Results   []domain.ResultItem `json:"results"`
	Query     string              `json:"query"`
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"app":    "semkb",
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createIndexRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body: %v", err)
		return
	}
	if err := domain.ValidateCollectionName(req.IndexName); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.CreateCollection(req.IndexName); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("index created", slog.String("index", req.IndexName))
	writeJSON(w, http.StatusCreated, createIndexResponse{
		IndexName: req.IndexName,
		Status:    "success",
		Message:   fmt.Sprintf("Index '%s' created successfully", req.IndexName),
	})
}

func (s *Server) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	indexes, err := s.store.ListCollections()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if indexes == nil {
		indexes = []string{}
	}
	writeJSON(w, http.StatusOK, listIndexesResponse{
		Indexes: indexes,
		Count:   len(indexes),
	})
}

func (s *Server) handleRecordCount(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	count, err := s.store.RecordCount(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordCountResponse{
		IndexName:   name,
		RecordCount: count,
	})
}

func (s *Server) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.store.DeleteCollection(name); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("index deleted", slog.String("index", name))
	writeJSON(w, http.StatusOK, createIndexResponse{
		IndexName: name,
		Status:    "success",
		Message:   fmt.Sprintf("Index '%s' deleted successfully", name),
	})
}

func (s *Server) handleEncodeDoc(w http.ResponseWriter, r *http.Request) {
	var req encodeDocRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body: %v", err)
		return
	}
	if err := domain.ValidateCollectionName(req.IndexName); err != nil {
		s.writeError(w, err)
		return
	}
	if req.DocumentPath == "" {
		s.badRequest(w, "document_path is required")
		return
	}

	report, err := s.ingestor.IngestFile(r.Context(), req.IndexName, req.DocumentPath)
	if err != nil {
		s.writeError(w, err)
		return
	}

	msg := fmt.Sprintf("Successfully encoded document with %d chunks", report.ChunkCount)
	if report.ChunkCount == 0 {
		msg = "Document processed but no chunks generated (empty document)"
	}
	writeJSON(w, http.StatusOK, encodeDocResponse{
		Status:       "success",
		Message:      msg,
		IndexName:    req.IndexName,
		DocumentPath: req.DocumentPath,
		ChunkCount:   report.ChunkCount,
		TokenCounts:  report.TokenCounts,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.badRequest(w, "invalid multipart form: %v", err)
		return
	}
	indexName := r.FormValue("index_name")
	if err := domain.ValidateCollectionName(indexName); err != nil {
		s.writeError(w, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.badRequest(w, "file field is required: %v", err)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".md" && ext != ".txt" {
		s.badRequest(w, "unsupported file type %q, only .md and .txt are accepted", ext)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.writeError(w, err)
		return
	}

	report, err := s.ingestor.Ingest(r.Context(), indexName, string(data), header.Filename)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadDocResponse{
		Status:      "success",
		Message:     fmt.Sprintf("Successfully encoded '%s' with %d chunks", header.Filename, report.ChunkCount),
		IndexName:   indexName,
		Filename:    header.Filename,
		ChunkCount:  report.ChunkCount,
		TokenCounts: report.TokenCounts,
	})
}

func (s *Server) handleEncodeBatch(w http.ResponseWriter, r *http.Request) {
	var req encodeBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body: %v", err)
		return
	}
	if err := domain.ValidateCollectionName(req.IndexName); err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.store.RecordCount(req.IndexName); err != nil {
		s.writeError(w, err)
		return
	}

	documents, err := s.ingestor.DiscoverDocuments(req.DirectoryPath, req.FilePatterns)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(documents) == 0 {
		writeJSON(w, http.StatusOK, encodeBatchResponse{
			Status:          "success",
			Message:         "No documents found matching the specified patterns",
			IndexName:       req.IndexName,
			DocumentsQueued: 0,
		})
		return
	}

	// Fire and forget. Completion is observed by polling the record
	// count; the outcome is also logged.
	go func() {
		report, err := s.ingestor.IngestDirectory(context.Background(), req.IndexName, req.DirectoryPath, req.FilePatterns, nil)
		if err != nil {
			s.logger.Error("batch processing failed",
				slog.String("index", req.IndexName), slog.Any("error", err))
			return
		}
		s.logger.Info("batch processing complete",
			slog.String("index", req.IndexName),
			slog.Int("processed", report.Processed),
			slog.Int("failed", report.Failed))
	}()

	writeJSON(w, http.StatusOK, encodeBatchResponse{
		Status:          "success",
		Message:         fmt.Sprintf("Batch processing started for %d documents", len(documents)),
		IndexName:       req.IndexName,
		DocumentsQueued: len(documents),
	})
}

func (s *Server) handleEncodeLlmsTxt(w http.ResponseWriter, r *http.Request) {
	var req encodeLlmsTxtRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body: %v", err)
		return
	}
	if err := domain.ValidateCollectionName(req.IndexName); err != nil {
		s.writeError(w, err)
		return
	}
	if req.URL == "" {
		s.badRequest(w, "llms_txt_url is required")
		return
	}
	if _, err := s.store.RecordCount(req.IndexName); err != nil {
		s.writeError(w, err)
		return
	}

	links, err := s.ingestor.DiscoverManifest(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, err)
		return
	}

	go func() {
		report, err := s.ingestor.IngestLinks(context.Background(), req.IndexName, links)
		if err != nil {
			s.logger.Error("manifest processing failed",
				slog.String("index", req.IndexName), slog.Any("error", err))
			return
		}
		s.logger.Info("manifest processing complete",
			slog.String("index", req.IndexName),
			slog.Int("processed", report.Processed),
			slog.Int("failed", report.Failed))
	}()

	writeJSON(w, http.StatusOK, encodeLlmsTxtResponse{
		Status:          "success",
		Message:         fmt.Sprintf("Batch processing started for %d documents", len(links)),
		IndexName:       req.IndexName,
		DocumentsQueued: len(links),
		SourceURL:       req.URL,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body: %v", err)
		return
	}
	if err := domain.ValidateCollectionName(req.IndexName); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.badRequest(w, "query must not be empty")
		return
	}
	topK := req.TopK
	if topK == 0 {
		topK = s.defaultTopK
	}
	if topK < 1 || topK > 100 {
		s.badRequest(w, "top_k must be between 1 and 100, got %d", topK)
		return
	}

	results, err := s.searcher.Search(r.Context(), req.IndexName, req.Query, topK)
	if err != nil {
		s.writeError(w, err)
		return
	}

	msg := fmt.Sprintf("Found %d results", len(results))
	if len(results) == 0 {
		msg = "No results found"
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Status:    "success",
		Message:   msg,
		IndexName: req.IndexName,
		Results:   results,
		Query:     req.Query,
	})
}
