package service

import (
	"regexp"
	"strconv"
	"strings"
)

// Turkish duration phrases mapped to approximate day counts:
// "3 gündür" → 3, "1 haftadır" → 7, "2 aydır" → 60, bare "5" → 5.
var (
	dayPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*g[uü]nd[uü]r`),
		regexp.MustCompile(`(\d+)\s*g[uü]n\s*oldu`),
		regexp.MustCompile(`(\d+)\s*g[uü]n\s*dir`),
		regexp.MustCompile(`(\d+)\s*g[uü]n\b`),
		regexp.MustCompile(`(\d+)\s*g[uü]nl[uü]k`),
	}
	weekPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*haftad[iı]r`),
		regexp.MustCompile(`(\d+)\s*hafta\s*oldu`),
		regexp.MustCompile(`(\d+)\s*hafta\b`),
	}
	monthPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*ayd[iı]r`),
		regexp.MustCompile(`(\d+)\s*ay\s*oldu`),
		regexp.MustCompile(`(\d+)\s*ay\b`),
	}
	bareNumber = regexp.MustCompile(`^(\d{1,3})\s*$`)
)

// ExtractDurationDays parses a Turkish duration phrase into days, nil when
// no phrase is recognized or the value is implausible.
func ExtractDurationDays(text string) *int {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return nil
	}

	if days, ok := firstMatch(dayPatterns, t); ok && days > 0 && days < 365 {
		return &days
	}
	if weeks, ok := firstMatch(weekPatterns, t); ok && weeks > 0 && weeks < 52 {
		days := weeks * 7
		return &days
	}
	if months, ok := firstMatch(monthPatterns, t); ok && months > 0 && months <= 24 {
		days := months * 30
		return &days
	}
	if m := bareNumber.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 && n < 365 {
			return &n
		}
	}
	return nil
}

func firstMatch(patterns []*regexp.Regexp, text string) (int, bool) {
	for _, p := range patterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}
