// Package nusmods wraps the public NUSMods v2 API with in-process caching.
package nusmods

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/logging"
)

// Module is the canonical module payload. The API returns a large document;
// only the fields the advising tools consume are decoded, the rest stays in
// Raw for pass-through access.
type Module struct {
	ModuleCode          string         `json:"moduleCode"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	ModuleCredit        string         `json:"moduleCredit"`
	Faculty             string         `json:"faculty"`
	Department          string         `json:"department"`
	Prerequisite        string         `json:"prerequisite"`
	Preclusion          string         `json:"preclusion"`
	Corequisite         string         `json:"corequisite"`
	PrerequisiteTree    any            `json:"prerequisiteTree"`
	FulfillRequirements []string       `json:"fulfillRequirements"`
	SemesterData        []SemesterData `json:"semesterData"`
}

// SemesterData holds one semester's timetable for a module.
type SemesterData struct {
	Semester  int      `json:"semester"`
	Timetable []Lesson `json:"timetable"`
}

// Lesson is a single timetable slot.
type Lesson struct {
	ClassNo    string `json:"classNo"`
	LessonType string `json:"lessonType"`
	Day        string `json:"day"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	Venue      string `json:"venue"`
}

// ModuleSummary is one entry of the full module catalogue.
type ModuleSummary struct {
	ModuleCode   string `json:"moduleCode"`
	Title        string `json:"title"`
	ModuleCredit string `json:"moduleCredit,omitempty"`
}

// Client is a thin wrapper around the NUSMods v2 API. Responses are cached
// per process so repeated tool calls within a conversation stay cheap.
type Client struct {
	baseURL         string
	defaultAcadYear string
	http            *http.Client
	log             *logging.Logger

	mu         sync.Mutex
	modules    map[string]*Module
	moduleList map[string][]ModuleSummary
}

// New creates a catalog client. baseURL defaults to the public API and
// defaultAcadYear is used when a tool call omits the academic year.
func New(baseURL, defaultAcadYear string, log *logging.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.nusmods.com/v2"
	}
	if defaultAcadYear == "" {
		defaultAcadYear = "2025-2026"
	}
	return &Client{
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		defaultAcadYear: defaultAcadYear,
		http:            &http.Client{Timeout: 30 * time.Second},
		log:             log.Sub("nusmods"),
		modules:         make(map[string]*Module),
		moduleList:      make(map[string][]ModuleSummary),
	}
}

// DefaultAcadYear returns the year used when callers omit one.
func (c *Client) DefaultAcadYear() string { return c.defaultAcadYear }

// NormaliseCode validates and canonicalises a module code.
func NormaliseCode(moduleCode string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(moduleCode))
	if code == "" {
		return "", fmt.Errorf("module_code is required")
	}
	return code, nil
}

func (c *Client) year(acadYear string) string {
	if acadYear == "" {
		return c.defaultAcadYear
	}
	return acadYear
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nusmods API error (%d) for %s", resp.StatusCode, url)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// Module retrieves the canonical module payload for a course.
func (c *Client) Module(ctx context.Context, moduleCode, acadYear string) (*Module, error) {
	code, err := NormaliseCode(moduleCode)
	if err != nil {
		return nil, err
	}
	year := c.year(acadYear)
	cacheKey := year + ":" + code

	c.mu.Lock()
	if cached, ok := c.modules[cacheKey]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/%s/modules/%s.json", c.baseURL, year, code)
	c.log.Info().Str("url", url).Msg("fetching module details")

	var mod Module
	if err := c.get(ctx, url, &mod); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.modules[cacheKey] = &mod
	c.mu.Unlock()
	return &mod, nil
}

// ModuleList returns the entire module catalogue for keyword searches.
func (c *Client) ModuleList(ctx context.Context, acadYear string) ([]ModuleSummary, error) {
	year := c.year(acadYear)

	c.mu.Lock()
	if cached, ok := c.moduleList[year]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/%s/moduleList.json", c.baseURL, year)
	c.log.Info().Str("url", url).Msg("fetching module list")

	var list []ModuleSummary
	if err := c.get(ctx, url, &list); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.moduleList[year] = list
	c.mu.Unlock()
	return list, nil
}

// SearchModules finds modules whose code or title contains the query,
// optionally filtered by course level (the first digit of the numeric part).
func (c *Client) SearchModules(ctx context.Context, query, acadYear string, level, limit int) ([]ModuleSummary, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, fmt.Errorf("query must be a non-empty string")
	}
	if limit <= 0 {
		limit = 10
	}

	list, err := c.ModuleList(ctx, acadYear)
	if err != nil {
		return nil, err
	}

	var matches []ModuleSummary
	for _, mod := range list {
		if level > 0 && !matchesLevel(mod.ModuleCode, level) {
			continue
		}
		if strings.Contains(strings.ToLower(mod.ModuleCode), q) ||
			strings.Contains(strings.ToLower(mod.Title), q) {
			matches = append(matches, mod)
		}
		if len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

// ModuleTimetable returns the timetable blocks for a module, optionally
// restricted to one semester.
func (c *Client) ModuleTimetable(ctx context.Context, moduleCode, acadYear string, semester int) ([]SemesterData, error) {
	mod, err := c.Module(ctx, moduleCode, acadYear)
	if err != nil {
		return nil, err
	}
	if semester == 0 {
		return mod.SemesterData, nil
	}
	var out []SemesterData
	for _, sem := range mod.SemesterData {
		if sem.Semester == semester {
			out = append(out, sem)
		}
	}
	return out, nil
}

// matchesLevel reports whether a module code's level digit matches. The
// level is the first digit after the department prefix, so "DSA1101" is a
// level-1 module.
func matchesLevel(code string, level int) bool {
	for i := 0; i < len(code); i++ {
		if code[i] >= '0' && code[i] <= '9' {
			return int(code[i]-'0') == level
		}
	}
	return false
}
