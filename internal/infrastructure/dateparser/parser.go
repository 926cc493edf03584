package dateparser

import (
	"fmt"
	"time"

	"remindbot/internal/pkg/clock"
	appErrors "remindbot/internal/pkg/errors"
	"remindbot/internal/pkg/logger"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Parser turns free-text datetime input into an absolute instant in the
// configured timezone. Absolute formats ("2026-09-01 10:00") are tried
// first; anything else goes through fuzzy natural-language rules
// ("tomorrow at 3pm") relative to the current time.
type Parser struct {
	clk  *clock.Clock
	when *when.Parser
	log  logger.Logger
}

// New creates a parser resolving naive timestamps in the clock's timezone.
func New(clk *clock.Clock, log logger.Logger) *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{clk: clk, when: w, log: log}
}

// Parse converts free text into an absolute instant.
func (p *Parser) Parse(text string) (time.Time, error) {
	if t, err := dateparse.ParseIn(text, p.clk.Location()); err == nil {
		return t, nil
	}

	result, err := p.when.Parse(text, p.clk.Now())
	if err != nil {
		p.log.Debug(fmt.Sprintf("Fuzzy date parse failed for %q: %v", text, err))
		return time.Time{}, fmt.Errorf("%w: %q", appErrors.ErrParse, text)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("%w: %q", appErrors.ErrParse, text)
	}
	return result.Time, nil
}
