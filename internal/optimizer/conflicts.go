package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
)

const conflictFanOut = 4

var ErrInvalidAction = errors.New("invalid action")

type Conflict struct {
	Rule   string `json:"rule"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type TrainConflicts struct {
	TrainID   string     `json:"train_id"`
	Conflicts []Conflict `json:"conflicts"`
}

// ConflictsForTrain returns the optimizer's conflicts for one train. When the
// optimizer is unset or fails, it answers from the local rule instead.
func (c *Client) ConflictsForTrain(ctx context.Context, trainID string) TrainConflicts {
	raw, err := c.do(ctx, http.MethodGet, "/api/conflicts/"+url.PathEscape(trainID), nil)
	if err != nil {
		if !errors.Is(err, ErrNotConfigured) {
			c.logger.Warn("falling back to local conflict rule",
				slog.String("train_id", trainID),
				slog.String("error", err.Error()))
		}
		return MockConflicts(trainID)
	}

	var result TrainConflicts
	if err := json.Unmarshal(raw, &result); err != nil {
		return MockConflicts(trainID)
	}
	if result.TrainID == "" {
		result.TrainID = trainID
	}
	if result.Conflicts == nil {
		result.Conflicts = []Conflict{}
	}
	return result
}

// ConflictsForTrains looks up several trains concurrently. Results keep the
// order of trainIDs.
func (c *Client) ConflictsForTrains(ctx context.Context, trainIDs []string) ([]TrainConflicts, error) {
	results := make([]TrainConflicts, len(trainIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(conflictFanOut)
	for i, id := range trainIDs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = c.ConflictsForTrain(ctx, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MockConflicts reports fitness and job card failures for trains whose id
// ends in an even digit. An empty id counts as even.
func MockConflicts(trainID string) TrainConflicts {
	result := TrainConflicts{TrainID: trainID, Conflicts: []Conflict{}}
	if !endsInEvenDigit(trainID) {
		return result
	}
	result.Conflicts = append(result.Conflicts,
		Conflict{Rule: "fitness", Status: "failed", Reason: "Fitness expired"},
		Conflict{Rule: "job_card", Status: "failed", Reason: "Open high-priority job card"},
	)
	return result
}

func endsInEvenDigit(id string) bool {
	if id == "" {
		return true
	}
	d, err := strconv.Atoi(id[len(id)-1:])
	return err == nil && d%2 == 0
}

type ResolveRequest struct {
	ConflictID string `json:"conflictId"`
	Action     string `json:"action"`
}

// ResolveConflict acknowledges a resolve action and returns the operator
// message for it.
func ResolveConflict(req ResolveRequest) (string, error) {
	if req.Action != "resolve" {
		return "", ErrInvalidAction
	}
	return fmt.Sprintf("Conflict %s resolved successfully", req.ConflictID), nil
}
