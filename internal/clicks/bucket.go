package clicks

import (
	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/urlnorm"
	"github.com/jonesrussell/rankrecon/internal/window"
)

type bucketKey struct {
	query, page, country string
	win                  window.Window
}

// Bucket assigns events to windows and counts them per query, page,
// country and window, keeping in-house and SerpClix volume apart. Events
// outside every window are dropped and counted. Output follows first
// occurrence order.
func Bucket(events []domain.ClickEvent, windows []window.Window) ([]domain.ClickCount, int) {
	index := make(map[bucketKey]int)
	out := make([]domain.ClickCount, 0)
	dropped := 0

	for _, e := range events {
		w, ok := window.Bucket(windows, e.Date)
		if !ok {
			dropped++
			continue
		}

		k := bucketKey{query: e.Query, page: e.Page, country: e.Country, win: w}
		i, seen := index[k]
		if !seen {
			i = len(out)
			index[k] = i
			out = append(out, domain.ClickCount{
				Query:   e.Query,
				Page:    e.Page,
				Country: e.Country,
				Window:  w,
				Domain:  urlnorm.RegisteredDomain(e.Page),
			})
		}

		switch e.Source {
		case domain.SourceInHouse:
			out[i].InHouse++
		case domain.SourceSerpClix:
			out[i].SerpClix++
		}
	}
	return out, dropped
}
