// Package models defines the domain entities exchanged with the Genie backend.
//
// The package contains three groups of types:
//
// 1. Meal plans: long-running generation jobs tracked by id
//   - [MealPlan] : the job record, pending until the backend reports a terminal status
//   - [MealPlanStatus] : pending, completed or error; see [MealPlanStatus.IsTerminal]
//   - [MealPlanContent], [MealDay], [MealItem] : the generated plan attached on completion
//
// 2. Requests: user input sent when creating resources
//   - [MealPlanRequest] : dates plus meal type, diet, cuisine and complexity selections
//
// 3. Chats: "Ask Genie" conversation threads
//   - [Chat] : a titled thread owned by one user
//   - [ChatMessage] : a single user or assistant message
//
// JSON tags follow the backend's camelCase wire format, including the "_id" key.
package models
