package openapi

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonpointer"
	"github.com/xeipuuv/gojsonreference"

	"github.com/abendrothj/doppel/internal/specerr"
)

// refResolver follows $ref pointers across one or more files rooted at
// baseDir. Every external file ref is canonicalized and checked against
// baseDir before it is read — the spec treats a document that points
// outside its own directory as malicious input, not a bug (spec §4.1,
// §9(a) decision in DESIGN.md).
type refResolver struct {
	baseDir  string
	cache    map[string]*document
	visiting map[string]bool
}

func newRefResolver(rootDoc *document) *refResolver {
	return &refResolver{
		baseDir:  rootDoc.Dir,
		cache:    map[string]*document{rootDoc.Path: rootDoc},
		visiting: make(map[string]bool),
	}
}

// errRefCycle is returned when resolve detects the ref graph looping
// back on a pointer already being resolved. Callers turn this into an
// unknown-typed leaf rather than a hard failure (schemas are allowed to
// be self-referential, e.g. a tree node with "children": [Node]).
var errRefCycle = fmt.Errorf("ref cycle detected")

// resolve follows one $ref string relative to doc and returns the node
// it points at, along with the document that node lives in (needed so
// nested refs inside the resolved node keep resolving relative to the
// right directory).
// resolve follows ref and returns the node it points at. The returned
// release func must be deferred by the caller around its ENTIRE use of
// the resolved node (including any recursive walk into it) so the
// cycle guard stays armed for the whole subtree, not just the pointer
// lookup itself. If ref forms a cycle, resolve returns errRefCycle and
// a nil release func.
func (r *refResolver) resolve(doc *document, ref string) (node interface{}, targetDoc *document, release func(), err error) {
	filePart, pointerPart := splitRef(ref)

	targetDoc = doc
	if filePart != "" {
		resolved, err := r.loadExternal(doc, filePart)
		if err != nil {
			return nil, nil, nil, err
		}
		targetDoc = resolved
	}

	visitKey := targetDoc.Path + "#" + pointerPart
	if r.visiting[visitKey] {
		return nil, nil, nil, errRefCycle
	}
	r.visiting[visitKey] = true
	release = func() { delete(r.visiting, visitKey) }

	if pointerPart == "" {
		return targetDoc.Root, targetDoc, release, nil
	}

	resolvedNode, err := evaluatePointer(targetDoc.Root, pointerPart)
	if err != nil {
		release()
		return nil, nil, nil, &specerr.ParseError{File: targetDoc.Path, Reason: fmt.Sprintf("$ref pointer %q: %v", pointerPart, err)}
	}
	return resolvedNode, targetDoc, release, nil
}

func splitRef(ref string) (filePart, pointerPart string) {
	idx := strings.Index(ref, "#")
	if idx < 0 {
		return ref, ""
	}
	return ref[:idx], ref[idx+1:]
}

// evaluatePointer uses gojsonpointer to walk an RFC 6901 JSON pointer
// against an already-decoded document tree. gojsonpointer expects plain
// map[string]interface{}/[]interface{} nodes, so any goyaml.MapSlice
// encountered along the way is flattened first.
func evaluatePointer(root interface{}, pointer string) (interface{}, error) {
	plain := toPlain(root)
	ptr, err := gojsonpointer.NewJsonPointer(pointer)
	if err != nil {
		return nil, err
	}
	node, _, err := ptr.Get(plain)
	if err != nil {
		return nil, err
	}
	return node, nil
}

// toPlain recursively converts goyaml.MapSlice nodes into
// map[string]interface{} so gojsonpointer can walk them.
func toPlain(v interface{}) interface{} {
	if m, ok := toMap(v); ok {
		if _, isMapSlice := v.(map[string]interface{}); isMapSlice {
			return m
		}
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[k] = toPlain(val)
		}
		return out
	}
	if s, ok := toSlice(v); ok {
		out := make([]interface{}, len(s))
		for i, val := range s {
			out[i] = toPlain(val)
		}
		return out
	}
	return v
}

// loadExternal resolves a relative file reference against doc's
// directory, verifies the canonical target stays within baseDir, and
// loads (or returns a cached copy of) that document.
func (r *refResolver) loadExternal(doc *document, filePart string) (*document, error) {
	unescaped, err := url.PathUnescape(filePart)
	if err != nil {
		unescaped = filePart
	}

	jsonRef, err := gojsonreference.NewJsonReference(unescaped)
	if err != nil {
		return nil, &specerr.ParseError{File: doc.Path, Reason: fmt.Sprintf("invalid $ref %q: %v", filePart, err)}
	}
	if u := jsonRef.GetUrl(); u != nil && (u.Scheme != "" || u.Host != "") {
		return nil, &specerr.SpecSecurityViolation{File: doc.Path, Detail: fmt.Sprintf("remote $ref %q is not permitted", filePart)}
	}

	target := filepath.Join(doc.Dir, unescaped)
	canonical, err := canonicalize(target)
	if err != nil {
		return nil, &specerr.SpecSecurityViolation{File: doc.Path, Detail: fmt.Sprintf("$ref %q does not resolve: %v", filePart, err)}
	}

	base, err := canonicalize(r.baseDir)
	if err != nil {
		base = r.baseDir
	}
	if !withinDir(canonical, base) {
		return nil, &specerr.SpecSecurityViolation{File: doc.Path, Detail: fmt.Sprintf("$ref %q escapes the spec directory", filePart)}
	}

	if cached, ok := r.cache[canonical]; ok {
		return cached, nil
	}
	loaded, err := loadDocument(canonical)
	if err != nil {
		return nil, err
	}
	r.cache[canonical] = loaded
	return loaded, nil
}

// canonicalize resolves symlinks where possible, falling back to a pure
// lexical Clean when the path (or an ancestor) doesn't exist yet — a
// $ref security check must not depend on filesystem state that may
// differ between the check and the later read.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Clean(abs), nil
		}
		return "", err
	}
	return resolved, nil
}

func withinDir(candidate, dir string) bool {
	rel, err := filepath.Rel(dir, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}
