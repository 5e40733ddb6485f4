package rbac

// RolePermissions is the default policy. "anon" callers hold only the API key;
// learners hold a user token.
var RolePermissions = map[string][]string{
	"anon": {
		"content:read",
		"profile:read",
		"progress:read",
		"answer:submit",
		"asset:read",
	},
	"learner": {
		"content:read",
		"profile:read",
		"profile:write-own",
		"progress:read",
		"progress:write-own",
		"answer:submit",
		"asset:read",
	},
	"admin": {
		"*", // everything
	},
}
