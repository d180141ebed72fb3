package repogateway

var (
	_ Gateway = (*GitHubGateway)(nil)
	_ Gateway = (*GitLabGateway)(nil)
)
