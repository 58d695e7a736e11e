package api

import (
	"fmt"
	"strings"

	"tripnav/internal/model"
)

func validatePlanRequest(req *model.PlanRequest) error {
	if strings.TrimSpace(req.Start) == "" {
		return fmt.Errorf("start city is required")
	}
	if strings.TrimSpace(req.End) == "" {
		return fmt.Errorf("end city is required")
	}
	if req.Algorithm != "" && req.Algorithm != "exact" && req.Algorithm != "greedy" {
		return fmt.Errorf("invalid algorithm: %s (allowed: exact, greedy)", req.Algorithm)
	}
	for _, a := range req.Attractions {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("attraction names must be non-empty")
		}
	}
	return nil
}
