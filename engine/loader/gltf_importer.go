package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// gltfImporter is the importBackend for .gltf and .glb sources.
// Each import runs a fresh parser and the node, animation and skin extractors over it.
type gltfImporter struct{}

var _ importBackend = &gltfImporter{}

func newGLTFImporter() *gltfImporter {
	return &gltfImporter{}
}

func (imp *gltfImporter) Import(path string) (*model.ImportedModel, error) {
	p := newGLTFParser()
	if err := p.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return gltfAssemble(p, modelNameFromPath(path))
}

func (imp *gltfImporter) ImportReader(r io.Reader, isGLB bool) (*model.ImportedModel, error) {
	p := newGLTFParser()
	if err := p.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}
	return gltfAssemble(p, "")
}

// gltfAssemble extracts everything skeletal animation needs from a parsed document.
// The model is named after the default scene, else fallbackName, else "unnamed_model".
func gltfAssemble(p gltfParser, fallbackName string) (*model.ImportedModel, error) {
	doc := p.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document after parsing")
	}

	nodes := newGLTFNodeExtractor(p)
	root, err := nodes.ExtractHierarchy()
	if err != nil {
		return nil, fmt.Errorf("node extraction failed: %w", err)
	}

	animations, err := newGLTFAnimationExtractor(p, nodes).ExtractAllAnimations()
	if err != nil {
		return nil, fmt.Errorf("animation extraction failed: %w", err)
	}

	skins, err := newGLTFSkinExtractor(p, nodes).ExtractAllSkins()
	if err != nil {
		return nil, fmt.Errorf("skin extraction failed: %w", err)
	}

	name := fallbackName
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) && doc.Scenes[*doc.Scene].Name != "" {
		name = doc.Scenes[*doc.Scene].Name
	}
	if name == "" {
		name = "unnamed_model"
	}

	return &model.ImportedModel{
		Name:       name,
		Root:       root,
		Animations: animations,
		Skins:      skins,
	}, nil
}

// modelNameFromPath returns the file name of path without its extension.
func modelNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
