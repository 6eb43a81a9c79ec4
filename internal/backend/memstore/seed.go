package memstore

import "taskboard/internal/task"

// SampleTasks returns the deterministic board used in fallback mode.
func SampleTasks() []task.Task {
	return []task.Task{
		{ID: 1, Title: "API integration", Description: "Connect frontend to REST API endpoints", Column: task.Backlog, Position: 1},
		{ID: 2, Title: "Unit tests", Description: "Write tests for utility functions and hooks", Column: task.Backlog, Position: 2},
		{ID: 3, Title: "Performance audit", Description: "Lighthouse scores and bundle analysis", Column: task.Backlog, Position: 3},
		{ID: 4, Title: "Notification system", Description: "Toast notifications and in-app alerts", Column: task.Backlog, Position: 4},
		{ID: 5, Title: "User settings page", Description: "Profile editing, preferences, and account management", Column: task.Backlog, Position: 5},
		{ID: 6, Title: "Authentication flow", Description: "Implement login, signup, and password reset screens", Column: task.InProgress, Position: 1},
		{ID: 7, Title: "File upload component", Description: "Drag and drop file upload with preview", Column: task.InProgress, Position: 2},
		{ID: 8, Title: "Dark mode support", Description: "Add theme toggle and CSS variable switching", Column: task.Review, Position: 1},
		{ID: 9, Title: "Dashboard layout", Description: "Build responsive sidebar and main content area", Column: task.Review, Position: 2},
		{ID: 10, Title: "Design system tokens", Description: "Set up color palette, typography, and spacing scales", Column: task.Done, Position: 1},
	}
}
