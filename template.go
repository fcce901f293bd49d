package resonance

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"
	"text/template"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// renderer compiles prompt content against a helper registry and executes it
// with variable bindings. Compiled templates are cached per content string;
// an entry is tied to the registry generation that produced it, so a later
// RegisterHelper invalidates it and the content is compiled again (content
// that failed to parse may become valid once its helper exists).
type renderer struct {
	helpers *HelperRegistry
	log     *zap.Logger

	mu    sync.RWMutex
	cache map[string]*compiled
	sf    singleflight.Group
}

// compiled is one cache entry. tpl is nil when the content failed to parse
// at gen; the failure is cached too, so hot malformed content is not parsed
// again on every render.
type compiled struct {
	tpl *template.Template
	gen uint64
}

func newRenderer(helpers *HelperRegistry, log *zap.Logger) *renderer {
	return &renderer{
		helpers: helpers,
		log:     log,
		cache:   make(map[string]*compiled),
	}
}

// render returns content with vars bound. Nil vars means the caller wants the
// raw template: content comes back verbatim and nothing is compiled. Any
// parse or execute failure also returns content verbatim; the error is logged
// at debug level and never surfaced.
func (r *renderer) render(content string, vars map[string]any) string {
	if vars == nil {
		return content
	}
	c := r.compile(content)
	if c.tpl == nil {
		return content
	}
	out, err := execute(c.tpl, vars)
	if err != nil {
		r.log.Debug("prompt execution failed, returning raw content", zap.Error(err))
		return content
	}
	return out
}

// compile returns the cache entry for content at the current helper
// generation, parsing on miss. Concurrent first compiles of the same content
// at the same generation are deduplicated.
func (r *renderer) compile(content string) *compiled {
	funcs, gen := r.helpers.snapshot()

	r.mu.RLock()
	c, ok := r.cache[content]
	r.mu.RUnlock()
	if ok && c.gen == gen {
		return c
	}

	key := strconv.FormatUint(gen, 36) + "\x00" + content
	v, _, _ := r.sf.Do(key, func() (any, error) {
		r.mu.RLock()
		c, ok := r.cache[content]
		r.mu.RUnlock()
		if ok && c.gen == gen {
			return c, nil
		}
		tpl, err := template.New("prompt").Option("missingkey=error").Funcs(funcs).Parse(content)
		if err != nil {
			r.log.Debug("prompt parse failed, caching raw fallback", zap.Error(err))
			tpl = nil
		}
		c = &compiled{tpl: tpl, gen: gen}
		r.mu.Lock()
		r.cache[content] = c
		r.mu.Unlock()
		return c, nil
	})
	return v.(*compiled)
}

// execute runs tpl with vars bound. text/template converts helper panics to
// errors itself but re-raises runtime errors from execution; those surface
// here as errors as well, keeping the raw-content fallback total.
func execute(tpl *template.Template, vars map[string]any) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("resonance: panic executing template: %v", rec)
		}
	}()
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
