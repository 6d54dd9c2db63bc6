package domain

// DemoSubjects is the starter course shown to a fresh install before any
// remote document exists.
func DemoSubjects() []Subject {
	subjects := []Subject{
		{
			ID:          "1",
			Name:        "Mathematics",
			Teacher:     "Mr. Anderson",
			Time:        "08:00 AM - 09:30 AM",
			Description: "Advanced Calculus and Algebra",
			Tasks: []Task{{
				Gradable: Gradable{
					ID:      "t1",
					Title:   "Complete Chapter 5 Exercises",
					DueDate: "2023-10-15",
					Status:  "pending",
				},
				Description: "Solve all exercises in Chapter 5",
				Priority:    "high",
			}},
			Assignments: []Assignment{{
				Gradable: Gradable{
					ID:      "a1",
					Title:   "Research Paper",
					DueDate: "2023-10-20",
					Status:  "pending",
				},
				Instructions: "Write a 5-page research paper on Calculus",
				Points:       100,
			}},
		},
		{
			ID:          "2",
			Name:        "Physics",
			Teacher:     "Ms. Curie",
			Time:        "10:00 AM - 11:30 AM",
			Description: "Fundamentals of Physics",
		},
		{
			ID:          "3",
			Name:        "Computer Science",
			Teacher:     "Mr. Turing",
			Time:        "01:00 PM - 02:30 PM",
			Description: "Algorithms and Data Structures",
		},
	}
	for i := range subjects {
		subjects[i].Normalize()
	}
	return subjects
}
