// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package assets

import (
	"encoding/json"
	"path"
	"strings"
)

const (
	defaultCSSPath = "/static/css/styles.css"
	defaultJSPath  = "/static/js/app.js"
)

type assetPaths struct {
	css string
	js  string
}

// parseMeta maps the outputs of an esbuild metafile to URLs below /static/.
// Missing outputs keep the unhashed defaults.
func parseMeta(data []byte) (assetPaths, error) {
	p := assetPaths{css: defaultCSSPath, js: defaultJSPath}
	if len(strings.TrimSpace(string(data))) == 0 {
		return p, nil
	}

	outputs, err := decodeMeta(data)
	if err != nil {
		return p, err
	}
	for file := range outputs {
		idx := strings.Index(file, "/static/")
		if idx < 0 {
			continue
		}
		url := file[idx:]
		switch path.Ext(url) {
		case ".css":
			p.css = url
		case ".js":
			p.js = url
		}
	}
	return p, nil
}

func decodeMeta(data []byte) (map[string]json.RawMessage, error) {
	var meta struct {
		Outputs map[string]json.RawMessage `json:"outputs"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return meta.Outputs, nil
}
