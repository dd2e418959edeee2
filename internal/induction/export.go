package induction

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"optimetro.kochimetro.org/internal/models"
)

var csvHeader = []string{
	"train_id", "action", "score", "confidence", "reason",
	"bay_assignment", "estimated_turnout", "trip_assignments", "constraints",
}

// WriteCSV writes one row per decision.
func WriteCSV(w io.Writer, plan *models.InductionPlan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, d := range plan.Decisions {
		row := []string{
			d.TrainID,
			string(d.Action),
			strconv.FormatFloat(d.Score, 'f', 4, 64),
			strconv.FormatFloat(d.Confidence, 'f', 4, 64),
			d.Reason,
			d.BayAssignment,
			d.EstimatedTurnout,
			strings.Join(d.TripAssignments, ";"),
			strings.Join(d.Constraints, ";"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write decision %s: %w", d.TrainID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
