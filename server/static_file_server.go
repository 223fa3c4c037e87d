package server

import (
	"embed"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

//go:embed static/*
var staticFiles embed.FS

func FileServerHandler() http.Handler {
	return http.FileServer(http.FS(StaticFilesFS()))
}

func StaticFilesFS() fs.FS {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("Failed to create sub filesystem: " + err.Error())
	}

	return subFS
}

func (s *Server) staticHandler() http.HandlerFunc {
	h := http.StripPrefix(strings.TrimSuffix(RouteStatic, "/"), s.fileServer)
	return h.ServeHTTP
}

// StreamFile writes an embedded static file with its content type.
func StreamFile(w http.ResponseWriter, _ *http.Request, fileName string) error {
	data, err := fs.ReadFile(StaticFilesFS(), fileName)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", fileName, err)
	}

	ctype := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if strings.HasPrefix(ctype, "text/") && !strings.Contains(strings.ToLower(ctype), "charset=") {
		ctype += "; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s content: %w", fileName, err)
	}
	return nil
}
