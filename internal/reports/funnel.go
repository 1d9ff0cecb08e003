package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"shopalytics/internal/aggregate"
	"shopalytics/internal/funnel"
	"shopalytics/internal/timeframe"
)

// BuildConversionFunnel counts, per month and funnel stage, the sessions
// whose pageviews reached the stage, then derives the step click-through
// and drop-off rates. The month axis matches the sales summary: the
// contiguous covered range, including months without sessions.
func BuildConversionFunnel(data *Dataset) []ConversionFunnel {
	months := data.Months()
	if len(months) == 0 {
		return nil
	}

	cfg := data.Funnel()
	stages := cfg.Stages()

	counts := make(map[time.Time][]int64, len(months))
	for _, month := range months {
		counts[month] = make([]int64, len(stages))
	}

	for _, session := range data.Sessions {
		month := timeframe.TruncateToMonth(session.CreatedAt)
		flags := cfg.Flags(data.PageviewsFor(session.ID))
		for i, reached := range flags {
			if reached {
				counts[month][i]++
			}
		}
	}

	oneHundred := decimal.NewFromInt(100)
	rows := make([]ConversionFunnel, 0, len(months)*len(stages))
	for _, month := range months {
		rates := funnel.StepRates(counts[month])
		for i, stage := range stages {
			dropOff := aggregate.Undefined()
			if rates[i].Valid {
				dropOff = aggregate.Defined(oneHundred.Sub(rates[i].Decimal))
			}
			rows = append(rows, ConversionFunnel{
				Month:           month,
				StageIndex:      i,
				Stage:           stage.Name,
				Sessions:        counts[month][i],
				ClickThroughPct: rates[i],
				DropOffPct:      dropOff,
			})
		}
	}
	return rows
}
