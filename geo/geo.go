// Package geo parses the "lat,lon" text sent by the order form.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrBadPoint = errors.New("гео должно быть в формате \"широта,долгота\"")

type Point struct {
	Lat float64
	Lon float64
}

// Parse accepts two decimal numbers separated by the first comma. Spaces are ignored.
func Parse(text string) (Point, error) {
	t := strings.ReplaceAll(text, " ", "")
	latText, lonText, ok := strings.Cut(t, ",")
	if !ok {
		return Point{}, ErrBadPoint
	}
	lat, err := parseCoordinate(latText)
	if err != nil {
		return Point{}, fmt.Errorf("широта %q: %w", latText, err)
	}
	lon, err := parseCoordinate(lonText)
	if err != nil {
		return Point{}, fmt.Errorf("долгота %q: %w", lonText, err)
	}
	return Point{Lat: lat, Lon: lon}, nil
}

func parseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, ErrBadPoint
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrBadPoint
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrBadPoint
	}
	return v, nil
}

// MapLink is the Yandex.Maps link for the point. Yandex expects longitude first.
func (p Point) MapLink() string {
	return fmt.Sprintf("https://yandex.ru/maps/?pt=%s,%s&z=16&l=map", formatCoordinate(p.Lon), formatCoordinate(p.Lat))
}

// MapLink derives the link from raw geo text; ok is false when there is nothing to link to.
func MapLink(text string) (string, bool) {
	p, err := Parse(text)
	if err != nil {
		return "", false
	}
	return p.MapLink(), true
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
