// Package templates holds the built-in task template catalogue and turns
// templates into task drafts.
package templates

import (
	"slices"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/model"
)

var categories = []model.TemplateCategory{
	{ID: "kitchen", Name: "Kitchen", Icon: "🍳", Color: "#f59e0b", Description: "Kitchen cleaning and meal prep tasks"},
	{ID: "bathroom", Name: "Bathroom", Icon: "🚿", Color: "#3b82f6", Description: "Bathroom cleaning and maintenance"},
	{ID: "laundry", Name: "Laundry", Icon: "👕", Color: "#8b5cf6", Description: "Laundry and clothing care"},
	{ID: "living", Name: "Living Areas", Icon: "🛋️", Color: "#10b981", Description: "Living room, dining room, and common areas"},
	{ID: "bedroom", Name: "Bedrooms", Icon: "🛏️", Color: "#ec4899", Description: "Bedroom cleaning and organization"},
	{ID: "outdoor", Name: "Outdoor", Icon: "🌳", Color: "#059669", Description: "Yard work and outdoor maintenance"},
	{ID: "maintenance", Name: "Maintenance", Icon: "🔧", Color: "#6b7280", Description: "Home maintenance and repairs"},
	{ID: "shopping", Name: "Shopping", Icon: "🛒", Color: "#f97316", Description: "Grocery and household shopping"},
}

var defaults = []model.TaskTemplate{
	{
		Title:            "Kitchen Deep Clean",
		Description:      "Thorough kitchen cleaning including appliances, counters, and floors",
		Category:         "kitchen",
		Priority:         model.PriorityMedium,
		EstimatedMinutes: 45,
		Room:             "Kitchen",
		Supplies:         []string{"All-purpose cleaner", "Dish soap", "Microfiber cloths", "Sponge"},
		Steps: []string{
			"Clear and wipe down all countertops",
			"Clean inside and outside of microwave",
			"Wipe down refrigerator exterior",
			"Clean stovetop and oven",
			"Sweep and mop floors",
			"Take out trash and recycling",
		},
	},
	{
		Title:            "Bathroom Clean",
		Description:      "Complete bathroom cleaning and sanitization",
		Category:         "bathroom",
		Priority:         model.PriorityMedium,
		EstimatedMinutes: 30,
		Room:             "Bathroom",
		Supplies:         []string{"Bathroom cleaner", "Toilet cleaner", "Glass cleaner", "Towels"},
		Steps: []string{
			"Clean toilet bowl and seat",
			"Wipe down sink and counter",
			"Clean shower/tub",
			"Wipe down mirrors",
			"Sweep and mop floors",
			"Restock toiletries",
		},
	},
	{
		Title:            "Laundry Day",
		Description:      "Complete laundry cycle including washing, drying, and folding",
		Category:         "laundry",
		Priority:         model.PriorityLow,
		EstimatedMinutes: 120,
		Room:             "Laundry Room",
		Supplies:         []string{"Laundry detergent", "Fabric softener", "Dryer sheets"},
		Steps: []string{
			"Sort clothes by color and fabric type",
			"Load washing machine",
			"Transfer to dryer when complete",
			"Fold and organize clean clothes",
			"Put away in appropriate locations",
		},
	},
	{
		Title:            "Living Room Tidy",
		Description:      "Quick living room organization and surface cleaning",
		Category:         "living",
		Priority:         model.PriorityLow,
		EstimatedMinutes: 20,
		Room:             "Living Room",
		Supplies:         []string{"Dust cloth", "Vacuum cleaner"},
		Steps: []string{
			"Pick up and organize items",
			"Dust surfaces and furniture",
			"Vacuum carpets and floors",
			"Fluff pillows and straighten cushions",
			"Empty trash bins",
		},
	},
	{
		Title:            "Grocery Shopping",
		Description:      "Weekly grocery shopping trip",
		Category:         "shopping",
		Priority:         model.PriorityHigh,
		EstimatedMinutes: 60,
		Room:             "Kitchen",
		Supplies:         []string{"Shopping list", "Reusable bags"},
		Steps: []string{
			"Check pantry and refrigerator",
			"Create shopping list",
			"Visit grocery store",
			"Purchase items on list",
			"Unpack and organize groceries",
		},
	},
}

// Categories returns the template categories.
func Categories() []model.TemplateCategory {
	return slices.Clone(categories)
}

// Defaults returns a fresh copy of the built-in templates, flagged default.
func Defaults() []model.TaskTemplate {
	out := make([]model.TaskTemplate, len(defaults))
	for i, t := range defaults {
		t.Supplies = slices.Clone(t.Supplies)
		t.Steps = slices.Clone(t.Steps)
		t.IsDefault = true
		out[i] = t
	}
	return out
}

// Instantiate turns a template into a task draft. Assignees are copied in
// input order; resolving their names is the caller's job. A nil due date
// means now.
func Instantiate(t model.TaskTemplate, assignees []model.Assignee, due *time.Time, now time.Time) model.TaskDraft {
	d := model.TaskDraft{
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Category:    t.Category,
		AssignedTo:  slices.Clone(assignees),
		DueTime:     now,
		Repeat:      t.Repeat,
	}
	if d.AssignedTo == nil {
		d.AssignedTo = []model.Assignee{}
	}
	if due != nil {
		d.DueTime = *due
	}
	return d
}

// ResolveAssignees maps ids to {id, name} pairs using names. An id without a
// known name is reused as the name.
func ResolveAssignees(ids []string, names map[string]string) []model.Assignee {
	out := make([]model.Assignee, 0, len(ids))
	for _, id := range ids {
		name, ok := names[id]
		if !ok || name == "" {
			name = id
		}
		out = append(out, model.Assignee{ID: id, Name: name})
	}
	return out
}
