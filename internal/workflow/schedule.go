package workflow

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
)

// Scheduler assigns posting times from static per-platform slot tables,
// adjusted for content type, audience timezone and cross-platform staggering.
// It is a pure function of its inputs and the injected now; it makes no
// external calls.
type Scheduler struct {
	DefaultTimezone string
	StaggerWindow   time.Duration
	// SlotOverrides maps a platform to a cron expression replacing its
	// built-in slot table.
	SlotOverrides map[string]string
}

// ContentType classifies the material for timing purposes
type ContentType string

const (
	ContentBreakingNews    ContentType = "breaking_news"
	ContentProfessional    ContentType = "professional"
	ContentVisualLifestyle ContentType = "visual_lifestyle"
	ContentAnalytical      ContentType = "analytical"
	ContentGeneric         ContentType = "generic"
)

// audienceTimezones maps a detected audience region to its scheduling zone
var audienceTimezones = map[string]string{
	"us":      "US/Eastern",
	"europe":  "Europe/London",
	"asia":    "Asia/Singapore",
	"nordics": "Europe/Copenhagen",
}

var audiencePatterns = map[string][]string{
	"us":      {"america", "united states", "usa", "american", "california", "new york", "miami"},
	"europe":  {"europe", "european", "britain", "uk ", "germany", "france", "london"},
	"asia":    {"asia", "asian", "china", "japan", "india", "singapore", "tokyo"},
	"nordics": {"greenland", "iceland", "denmark", "norway", "sweden", "finland"},
}

type slot struct{ hour, minute int }

// Static slot tables derived from platform engagement research. Weekday is
// Monday through Friday unless noted.
var (
	twitterWeekdaySlots = []slot{{12, 0}, {13, 0}, {14, 0}, {15, 0}}
	twitterSecondary    = slot{9, 0}
	twitterWeekendSlots = []slot{{10, 0}, {14, 0}, {16, 0}}

	linkedinPeakSlots  = []slot{{7, 0}, {8, 0}, {9, 0}, {12, 0}, {13, 0}, {14, 0}, {17, 0}, {18, 0}} // Tue-Thu
	linkedinOtherSlots = []slot{{8, 0}, {13, 0}, {17, 0}}                                            // Mon, Fri

	instagramEveningSlots = []slot{{18, 0}, {19, 0}, {20, 0}, {21, 0}}
	instagramWeekendSlots = []slot{{10, 0}, {11, 0}}
)

// SuggestTimes produces one posting time per platform, deterministic for a
// given now. Breaking news collapses to now+5m; everything else takes the
// next upcoming slot from its table, rolled forward past now, then staggered
// so no two platforms post within the stagger window.
func (s *Scheduler) SuggestTimes(platforms []Platform, contentText, topicHint string, now time.Time) ([]PostingTime, error) {
	contentType := classifyContent(contentText, topicHint)
	region := detectAudience(contentText, topicHint)

	tzName := s.DefaultTimezone
	if mapped, ok := audienceTimezones[region]; ok {
		tzName = mapped
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tzName, err)
	}
	localNow := now.In(loc)

	// Stable platform order keeps the stagger shifts deterministic
	ordered := make([]Platform, 0, len(platforms))
	for _, p := range AllPlatforms {
		for _, q := range platforms {
			if p == q {
				ordered = append(ordered, p)
				break
			}
		}
	}

	var timings []PostingTime
	for _, platform := range ordered {
		if contentType == ContentBreakingNews && platform == Twitter {
			timings = append(timings, PostingTime{
				Platform:  platform,
				LocalTime: localNow.Add(5 * time.Minute),
				Rationale: "breaking news, post immediately for maximum reach",
			})
			continue
		}

		t, rationale := s.nextSlot(platform, contentType, localNow)
		timings = append(timings, PostingTime{Platform: platform, LocalTime: t, Rationale: rationale})
	}

	s.stagger(timings)
	sort.SliceStable(timings, func(i, j int) bool { return timings[i].LocalTime.Before(timings[j].LocalTime) })
	return timings, nil
}

// nextSlot picks the earliest future slot for a platform, honoring a cron
// override when configured
func (s *Scheduler) nextSlot(platform Platform, contentType ContentType, now time.Time) (time.Time, string) {
	if expr, ok := s.SlotOverrides[string(platform)]; ok && expr != "" {
		if parsed, err := cronexpr.Parse(expr); err == nil {
			if next := parsed.Next(now); !next.IsZero() {
				return next, fmt.Sprintf("configured %s schedule override", platform)
			}
		}
	}

	// Scan up to a week ahead so platforms with no weekend slots still land
	for day := 0; day < 8; day++ {
		date := now.AddDate(0, 0, day)
		slots, rationale := slotsFor(platform, contentType, date.Weekday())
		for _, sl := range slots {
			candidate := time.Date(date.Year(), date.Month(), date.Day(), sl.hour, sl.minute, 0, 0, now.Location())
			if candidate.After(now) {
				return candidate, rationale
			}
		}
	}
	// Unreachable with the built-in tables; fall back to noon tomorrow
	t := now.AddDate(0, 0, 1)
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, now.Location()), "default midday slot"
}

func slotsFor(platform Platform, contentType ContentType, weekday time.Weekday) ([]slot, string) {
	weekend := weekday == time.Saturday || weekday == time.Sunday
	switch platform {
	case Twitter:
		if weekend {
			return twitterWeekendSlots, "weekend leisure browsing window"
		}
		if contentType == ContentProfessional {
			return append([]slot{twitterSecondary}, twitterWeekdaySlots...), "morning commute and lunch engagement peaks"
		}
		return twitterWeekdaySlots, "weekday lunch break engagement peak"
	case LinkedIn:
		if weekend {
			return nil, ""
		}
		if weekday >= time.Tuesday && weekday <= time.Thursday {
			return linkedinPeakSlots, "Tuesday-Thursday business hours peak"
		}
		return linkedinOtherSlots, "weekday professional browsing windows"
	case Instagram:
		if weekend {
			if contentType == ContentVisualLifestyle {
				return append(append([]slot{}, instagramWeekendSlots...), instagramEveningSlots...), "weekend browsing, visual content prime time"
			}
			return instagramWeekendSlots, "weekend late-morning browsing"
		}
		return instagramEveningSlots, "weekday evening leisure browsing"
	}
	return []slot{{12, 0}}, "default midday slot"
}

// stagger shifts the later of any two postings that fall within the window
func (s *Scheduler) stagger(timings []PostingTime) {
	window := s.StaggerWindow
	if window <= 0 {
		return
	}
	sort.SliceStable(timings, func(i, j int) bool { return timings[i].LocalTime.Before(timings[j].LocalTime) })
	for i := 1; i < len(timings); i++ {
		gap := timings[i].LocalTime.Sub(timings[i-1].LocalTime)
		if gap < window {
			timings[i].LocalTime = timings[i-1].LocalTime.Add(window)
			timings[i].Rationale += fmt.Sprintf(", shifted %s to avoid overlapping posts", window)
		}
	}
}

func classifyContent(contentText, topicHint string) ContentType {
	combined := strings.ToLower(contentText + " " + topicHint)
	switch {
	case containsAny(combined, "breaking", "alert", "urgent", "just announced", "developing"):
		return ContentBreakingNews
	case containsAny(combined, "study", "research", "analysis", "data", "report", "survey"):
		return ContentAnalytical
	case containsAny(combined, "photos", "images", "beautiful", "stunning", "lifestyle", "culture", "travel"):
		return ContentVisualLifestyle
	case containsAny(combined, "business", "professional", "industry", "enterprise", "leadership"):
		return ContentProfessional
	}
	return ContentGeneric
}

func detectAudience(contentText, topicHint string) string {
	combined := strings.ToLower(contentText + " " + topicHint)
	// Check specific regions before the global default; map iteration order
	// is random, so use a fixed order.
	for _, region := range []string{"us", "europe", "asia", "nordics"} {
		if containsAny(combined, audiencePatterns[region]...) {
			return region
		}
	}
	return "global"
}

func containsAny(text string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
