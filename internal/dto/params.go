package dto

import (
	"strconv"
	"strings"
	"time"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// splitValues accepts both repeated parameters and comma lists
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseFloat(name, raw string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, domain.NewInvalidQueryError("%s must be a number", name)
	}
	return f, nil
}

func parseInt(name, raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.NewInvalidQueryError("%s must be an integer", name)
	}
	return n, nil
}

func parseTime(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.NewInvalidQueryError("%s must be an RFC 3339 timestamp", name)
	}
	t = t.UTC()
	return &t, nil
}

// parseNear builds a radius constraint. All three values are required together.
func parseNear(lng, lat, radius string) (*domain.Near, error) {
	if lng == "" && lat == "" {
		if radius != "" {
			return nil, domain.NewInvalidQueryError("radius requires lng and lat")
		}
		return nil, nil
	}
	if lng == "" || lat == "" {
		return nil, domain.NewInvalidQueryError("lng and lat must be given together")
	}
	x, err := parseFloat("lng", lng)
	if err != nil {
		return nil, err
	}
	y, err := parseFloat("lat", lat)
	if err != nil {
		return nil, err
	}
	near := &domain.Near{Center: domain.NewPoint(x, y)}
	if radius == "" {
		return near, nil
	}
	if near.RadiusMeters, err = parseFloat("radius", radius); err != nil {
		return nil, err
	}
	return near, nil
}

func splitDetail(raw string) (string, domain.DetailOp, string, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return "", "", "", domain.NewInvalidQueryError("detail filter %q must be field:op:value", raw)
	}
	return parts[0], domain.DetailOp(parts[1]), parts[2], nil
}
