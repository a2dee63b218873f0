// Package htmlfix corrige en lot les pages produit statiques dont le script
// d'ajout au panier ne gardait que le nom du fichier image.
package htmlfix

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"
)

// DefaultPattern repère l'ancien calcul `image: ....src.split('/').pop()`.
var DefaultPattern = regexp.MustCompile(`image:.*\.src\.split.*pop.*`)

const DefaultReplacement = `image: document.querySelector("img").src, // Full image path`

var DefaultFiles = []string{
	"product2detail.html",
	"product3detail.html",
	"product4detail.html",
	"product5detail.html",
	"product6detail.html",
	"product7detail.html",
	"product8detail.html",
	"fproduct2detail.html",
	"fproduct3detail.html",
	"fproduct4detail.html",
	"fproduct5detail.html",
	"fproduct6detail.html",
	"fproduct7detail.html",
	"fproduct8detail.html",
	"product4detail-fixed.html",
	"product4detail-final.html",
	"product4detail-corrected.html",
	"product4detail-clean.html",
	"product4detail-clean-final.html",
}

type Patcher struct {
	Pattern     *regexp.Regexp
	Replacement string
	Logger      *zap.Logger
}

func NewPatcher(logger *zap.Logger) *Patcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Patcher{
		Pattern:     DefaultPattern,
		Replacement: DefaultReplacement,
		Logger:      logger.Named("htmlfix"),
	}
}

type Result struct {
	Fixed     []string
	Unchanged []string
	Failed    map[string]error
}

// PatchFile remplace la première occurrence du motif. false si le motif est
// absent (fichier non modifié).
func (p *Patcher) PatchFile(path string) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	loc := p.Pattern.FindIndex(content)
	if loc == nil {
		return false, nil
	}

	patched := make([]byte, 0, len(content)-(loc[1]-loc[0])+len(p.Replacement))
	patched = append(patched, content[:loc[0]]...)
	patched = append(patched, p.Replacement...)
	patched = append(patched, content[loc[1]:]...)

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, patched, info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("écriture %s: %w", path, err)
	}
	return true, nil
}

// Run traite chaque fichier de dir ; une erreur n'arrête pas le lot.
func (p *Patcher) Run(dir string, files []string) Result {
	res := Result{Failed: map[string]error{}}
	p.Logger.Info("correction des chemins d'image", zap.Int("files", len(files)))

	for _, name := range files {
		ok, err := p.PatchFile(filepath.Join(dir, name))
		switch {
		case err != nil:
			res.Failed[name] = err
			p.Logger.Error("échec", zap.String("file", name), zap.Error(err))
		case ok:
			res.Fixed = append(res.Fixed, name)
			p.Logger.Info("corrigé", zap.String("file", name))
		default:
			res.Unchanged = append(res.Unchanged, name)
			p.Logger.Warn("motif absent", zap.String("file", name))
		}
	}

	p.Logger.Info("terminé",
		zap.Int("fixed", len(res.Fixed)),
		zap.Int("unchanged", len(res.Unchanged)),
		zap.Int("failed", len(res.Failed)),
	)
	return res
}
