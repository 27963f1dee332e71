package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/about"
	StatusRoute      = "/v1/status"

	LeaderboardRoute = "/v1/leaderboard"
	LogsRoute        = "/v1/logs"
	MemberRoute      = "/v1/members/{id}"

	AdminParent      = "/v1/admin/"
	BanMemberRoute   = AdminParent + "members/{id}/ban"
	UnbanMemberRoute = AdminParent + "members/{id}/unban"
	ListActionsRoute = AdminParent + "actions"
	RecentBansRoute  = AdminParent + "bans"
	SearchUsersRoute = AdminParent + "users"

	TaskParent       = "/v1/tasks/"
	ListTasksRoute   = TaskParent
	TriggerTaskRoute = TaskParent + "{name}/trigger"
	LogsForTaskRoute = TaskParent + "{name}/logs"
)
