package tools

import (
	"context"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/nusmods"
)

const acadYearHint = "The academic year in YYYY-YYYY format (for example, 2024-2025)."

// RegisterCatalogTools registers the NUSMods lookup tools on the registry.
func RegisterCatalogTools(reg *Registry, client *nusmods.Client) {
	reg.Register(&moduleOverview{client: client})
	reg.Register(&modulePrerequisites{client: client})
	reg.Register(&moduleTimetable{client: client})
	reg.Register(&moduleSearch{client: client})
}

// moduleOverview returns the canonical module payload for planning questions.
type moduleOverview struct {
	client *nusmods.Client
}

func (t *moduleOverview) Name() string { return "module_overview" }

func (t *moduleOverview) Description() string {
	return "Retrieve the canonical module payload (title, description, credits, " +
		"faculty, prerequisites) for course planning questions."
}

func (t *moduleOverview) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"module_code": map[string]any{
				"type":        "string",
				"description": "The module code, e.g. DSA1101.",
			},
			"acad_year": map[string]any{
				"type":        "string",
				"description": acadYearHint,
			},
		},
		"required": []string{"module_code"},
	}
}

func (t *moduleOverview) Execute(ctx context.Context, args map[string]any) (any, error) {
	code, err := stringArg(args, "module_code")
	if err != nil {
		return nil, err
	}
	mod, err := t.client.Module(ctx, code, optionalStringArg(args, "acad_year"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"moduleCode":          mod.ModuleCode,
		"title":               mod.Title,
		"description":         mod.Description,
		"moduleCredit":        mod.ModuleCredit,
		"faculty":             mod.Faculty,
		"department":          mod.Department,
		"prerequisite":        mod.Prerequisite,
		"preclusion":          mod.Preclusion,
		"fulfillRequirements": mod.FulfillRequirements,
	}, nil
}

// modulePrerequisites surfaces prerequisite, preclusion, and fulfilment data.
type modulePrerequisites struct {
	client *nusmods.Client
}

func (t *modulePrerequisites) Name() string { return "module_prerequisites" }

func (t *modulePrerequisites) Description() string {
	return "Surface prerequisite, preclusion, corequisite, and fulfilment data " +
		"for a module, including the structured prerequisite tree."
}

func (t *modulePrerequisites) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"module_code": map[string]any{
				"type":        "string",
				"description": "The module code, e.g. DSA2101.",
			},
			"acad_year": map[string]any{
				"type":        "string",
				"description": acadYearHint,
			},
		},
		"required": []string{"module_code"},
	}
}

func (t *modulePrerequisites) Execute(ctx context.Context, args map[string]any) (any, error) {
	code, err := stringArg(args, "module_code")
	if err != nil {
		return nil, err
	}
	mod, err := t.client.Module(ctx, code, optionalStringArg(args, "acad_year"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"moduleCode":          mod.ModuleCode,
		"title":               mod.Title,
		"prerequisite":        mod.Prerequisite,
		"prerequisiteTree":    mod.PrerequisiteTree,
		"fulfillRequirements": mod.FulfillRequirements,
		"preclusion":          mod.Preclusion,
		"corequisite":         mod.Corequisite,
	}, nil
}

// moduleTimetable summarises timetable blocks across semesters.
type moduleTimetable struct {
	client *nusmods.Client
}

const defaultLessonLimit = 20

func (t *moduleTimetable) Name() string { return "module_timetable" }

func (t *moduleTimetable) Description() string {
	return "Summarise the module timetable across semesters and lesson groupings."
}

func (t *moduleTimetable) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"module_code": map[string]any{
				"type":        "string",
				"description": "The module code, e.g. DSA3101.",
			},
			"acad_year": map[string]any{
				"type":        "string",
				"description": acadYearHint,
			},
			"semester": map[string]any{
				"type":        "integer",
				"description": "Restrict to semester 1 or 2.",
			},
			"limit_lessons": map[string]any{
				"type":        "integer",
				"description": "Maximum lessons returned per semester (default 20).",
			},
		},
		"required": []string{"module_code"},
	}
}

func (t *moduleTimetable) Execute(ctx context.Context, args map[string]any) (any, error) {
	code, err := stringArg(args, "module_code")
	if err != nil {
		return nil, err
	}
	semester, err := optionalIntArg(args, "semester")
	if err != nil {
		return nil, err
	}
	limit, err := optionalIntArg(args, "limit_lessons")
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLessonLimit
	}

	acadYear := optionalStringArg(args, "acad_year")
	semesters, err := t.client.ModuleTimetable(ctx, code, acadYear, semester)
	if err != nil {
		return nil, err
	}

	shaped := make([]map[string]any, 0, len(semesters))
	for _, sem := range semesters {
		lessons := sem.Timetable
		if len(lessons) > limit {
			lessons = lessons[:limit]
		}
		shaped = append(shaped, map[string]any{
			"semester": sem.Semester,
			"lessons":  lessons,
		})
	}

	normalised, err := nusmods.NormaliseCode(code)
	if err != nil {
		return nil, err
	}
	if acadYear == "" {
		acadYear = t.client.DefaultAcadYear()
	}
	return map[string]any{
		"moduleCode":   normalised,
		"acadYear":     acadYear,
		"semesterData": shaped,
	}, nil
}

// moduleSearch locates modules by keyword for discovery tasks.
type moduleSearch struct {
	client *nusmods.Client
}

func (t *moduleSearch) Name() string { return "module_search" }

func (t *moduleSearch) Description() string {
	return "Locate modules by keyword, optionally filtered by level, for " +
		"discovery tasks."
}

func (t *moduleSearch) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Keyword matched against module codes and titles.",
			},
			"acad_year": map[string]any{
				"type":        "string",
				"description": acadYearHint,
			},
			"level": map[string]any{
				"type":        "integer",
				"description": "Course level filter, e.g. 1 for 1000-level modules.",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum results (default 10).",
			},
		},
		"required": []string{"query"},
	}
}

func (t *moduleSearch) Execute(ctx context.Context, args map[string]any) (any, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	level, err := optionalIntArg(args, "level")
	if err != nil {
		return nil, err
	}
	limit, err := optionalIntArg(args, "limit")
	if err != nil {
		return nil, err
	}

	acadYear := optionalStringArg(args, "acad_year")
	matches, err := t.client.SearchModules(ctx, query, acadYear, level, limit)
	if err != nil {
		return nil, err
	}

	results := make([]map[string]any, 0, len(matches))
	for _, mod := range matches {
		results = append(results, map[string]any{
			"moduleCode":   mod.ModuleCode,
			"title":        mod.Title,
			"moduleCredit": mod.ModuleCredit,
		})
	}
	if acadYear == "" {
		acadYear = t.client.DefaultAcadYear()
	}
	return map[string]any{
		"query":    query,
		"acadYear": acadYear,
		"count":    len(results),
		"results":  results,
	}, nil
}
