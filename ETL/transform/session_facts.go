package transform

import (
	"fmt"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
)

// buildPlaySessionFacts строит факты игровых сессий: одна строка на сессию
func (b *FactBuilder) buildPlaySessionFacts(sources models.SourceSet, lookups dimensionLookups, set *FactSet) (*models.Table, error) {
	src, err := sources.Require(models.SourceUserPlaySession, models.PlaySessionFacts)
	if err != nil {
		return nil, err
	}
	pos, err := columnPositions(src,
		"play_session_id", "user_id", "start_datetime", "end_datetime",
		"channel_code", "status_code", "total_score")
	if err != nil {
		return nil, err
	}
	const (
		sessionID = iota
		userID
		startCol
		endCol
		channel
		status
		score
	)

	out := models.NewTable(models.PlaySessionFacts, models.PlaySessionFactColumns...)
	for i, row := range src.Rows {
		if _, err := lookups.resolve(out.Name, "user_id", models.UserDimension, row[pos[userID]], i); err != nil {
			return nil, err
		}
		if _, err := lookups.resolve(out.Name, "channel_id", models.ChannelDimension, row[pos[channel]], i); err != nil {
			return nil, err
		}
		if _, err := lookups.resolve(out.Name, "status_id", models.StatusDimension, row[pos[status]], i); err != nil {
			return nil, err
		}

		start, ok := startTime(row[pos[startCol]])
		if !ok {
			return nil, unresolved(out.Name, "date_id", i, fmt.Sprintf("start_datetime %v не является временной меткой", row[pos[startCol]]))
		}
		dateKey := int64(models.EncodeDateKey(start))
		if _, err := lookups.resolve(out.Name, "date_id", models.TimeDimension, dateKey, i); err != nil {
			return nil, err
		}

		// заглушка заменяется до вычисления длительности
		end, replaced := b.resolver.ResolveEnd(row[pos[endCol]])
		if replaced {
			set.PlaceholderEndings++
		}
		minutes := DurationMinutes(start, end)
		if minutes.IsNegative() {
			b.negativeDuration(set, out.Name, "duration_minutes", i, minutes)
		}

		err := out.Append(
			row[pos[sessionID]],
			row[pos[userID]],
			dateKey,
			row[pos[channel]],
			row[pos[status]],
			row[pos[score]],
			minutes,
		)
		if err != nil {
			return nil, err
		}
	}

	b.logger.Debug("%s: %d строк", out.Name, out.Len())
	return out, nil
}
