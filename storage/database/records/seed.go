package records

import (
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

// SeedUsers holds only the bootstrap admin.
func SeedUsers(bootstrap user.BootstrapAdmin) []user.User {
	return []user.User{{
		ID:              1,
		Name:            core.CleanString(bootstrap.Name),
		Email:           core.CleanString(bootstrap.Email, true /* lower */),
		Password:        bootstrap.Password,
		Role:            user.RoleAdmin,
		Progress:        make(map[int]bool),
		UnlockedModules: []int{},
	}}
}

// SeedModules is the demo month shipped with a fresh install.
func SeedModules() []course.Module {
	return []course.Module{{
		ID:    1,
		Title: "Month 1: Introduction to Mastery",
		Lectures: []course.Lecture{{
			ID:        101,
			Title:     "The Elite Mindset",
			Thumbnail: "https://img.freepik.com/free-vector/gradient-techno-background_23-2148911524.jpg",
			Videos: []course.Video{
				{ID: 1001, Title: "Session 1", URL: "https://www.youtube.com/watch?v=zOjov-2OZ0E"},
			},
			Quiz: &course.Quiz{
				PassScore: course.DefaultPassScore,
				Questions: []course.Question{
					{Q: "What is elite?", A: []string{"Mindset", "Money", "Car"}, Correct: 0},
				},
			},
			StudentCodes: make(map[int]string),
		}},
		BulkCodes: []course.AccessCode{},
	}}
}
