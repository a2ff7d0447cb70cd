package persona

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/soyeahso/twin/internal/logging"
)

// extractPDFText concatenates the plain text of every page in order.
// Pages that are empty or fail to extract are skipped.
func extractPDFText(path string, log *logging.Logger) (text string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// The reader panics on some malformed page streams.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf reader: %v", rec)
		}
	}()

	var sb strings.Builder
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		sb.WriteString(pageText(r, i, log))
	}

	log.Debug().Int("pages", pages).Str("path", path).Msg("extracted profile text")
	return sb.String(), nil
}

func pageText(r *pdf.Reader, i int, log *logging.Logger) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Debug().Int("page", i).Interface("panic", rec).Msg("skipping unreadable page")
			text = ""
		}
	}()

	p := r.Page(i)
	if p.V.IsNull() {
		return ""
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		log.Debug().Int("page", i).Err(err).Msg("skipping page")
		return ""
	}
	return text
}
