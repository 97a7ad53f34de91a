package service

import "fmt"

func welcomeEmailTemplate(email, workoutURL, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Your account is ready.

Add a few goals to your first microcycle, then start a workout and let %s pick the next exercise for you:
%s

When the week is done, advance to the next microcycle and your goals come along.

Best,
The %s Team`, email, appName, workoutURL, appName)

	return subject, body
}

func accountDeletedEmailTemplate(email, appName string) (string, string) {
	subject := fmt.Sprintf("Your %s account has been deleted", appName)
	body := fmt.Sprintf(`Hi %s,

Your account has been permanently deleted from %s.

All your goals, microcycles and logged sets have been removed.

If you didn't request this deletion, please contact our support team immediately, though we won't be able to recover your data.

Best,
The %s Team`, email, appName, appName)

	return subject, body
}
