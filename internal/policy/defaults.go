package policy

// Built-in rules. Path groups are matched case-sensitively against each rm
// target or file path; prompt groups case-insensitively against the whole
// prompt.

var defaultDangerousPaths = []Rule{
	{ID: "dangerous-root", Pattern: `^/+$`, Reason: "filesystem root"},
	{ID: "dangerous-root-glob", Pattern: `^/\*$`, Reason: "everything under the filesystem root"},
	{ID: "dangerous-system-dir", Pattern: `^/(usr|etc|bin|sbin|lib|lib64|boot|dev|proc|sys|System|Library)(/|$)`, Reason: "system directory"},
	{ID: "dangerous-var", Pattern: `^/var($|[^/]|/($|[^t]|t($|[^m])|tm($|[^p])|tmp[^/]))`, Reason: "system directory /var (only /var/tmp is exempt)"},
	{ID: "dangerous-home-root", Pattern: `^/(home|Users|root)/?$`, Reason: "all user home directories"},
	{ID: "dangerous-home", Pattern: `^~/?$`, Reason: "home directory"},
	{ID: "dangerous-wildcard", Pattern: `^\*$`, Reason: "wildcard-only target"},
	{ID: "dangerous-cwd", Pattern: `^\.{1,2}/?$`, Reason: "current or parent directory"},
}

var defaultSafeCleanup = []Rule{
	{ID: "cleanup-node-modules", Pattern: `(^|/)node_modules/?$`},
	{ID: "cleanup-cache", Pattern: `(^|/)(\.cache|__pycache__|\.pytest_cache|\.mypy_cache|\.next|\.turbo)/?$`},
	{ID: "cleanup-build-output", Pattern: `(^|/)(dist|build|out|coverage)/?$`},
	{ID: "cleanup-temp-files", Pattern: `\.(tmp|log)$`},
}

var defaultEnvFile = []Rule{
	{ID: "env-file", Pattern: `(^|[/\s="'])\.env\b`, Reason: "file may contain secrets"},
}

var defaultMalicious = []Rule{
	{ID: "injection-semicolon", Category: CategoryCommandInjection, Pattern: `;\s*(rm|del|format|shutdown|halt)\s`, Reason: "command chained after ;"},
	{ID: "injection-pipe", Category: CategoryCommandInjection, Pattern: `\|\s*(rm|del|format|shutdown|halt)\s`, Reason: "command piped into a destructive program"},
	{ID: "injection-and", Category: CategoryCommandInjection, Pattern: `&&\s*(rm|del|format|shutdown|halt)\s`, Reason: "command chained after &&"},
	{ID: "injection-curl-shell", Category: CategoryCommandInjection, Pattern: `\b(curl|wget)\s+.*\|\s*(ba|z)?sh\b`, Reason: "download piped to a shell"},
	{ID: "injection-netcat-listener", Category: CategoryCommandInjection, Pattern: `\bn(c|cat)\s+-l`, Reason: "netcat listener"},

	{ID: "traversal-unix", Category: CategoryPathTraversal, Pattern: `\.\./`, Reason: "directory traversal"},
	{ID: "traversal-windows", Category: CategoryPathTraversal, Pattern: `\.\.\\`, Reason: "directory traversal"},

	{ID: "sensitive-passwd", Category: CategorySensitivePath, Pattern: `/etc/(passwd|shadow)\b`, Reason: "system credential database"},
	{ID: "sensitive-system32", Category: CategorySensitivePath, Pattern: `C:\\Windows\\System32`, Reason: "Windows system directory"},

	{ID: "code-sql-injection", Category: CategoryCodeInjection, Pattern: `\b(union\s+(all\s+)?select|select\s+.+\s+from|insert\s+into|delete\s+from|drop\s+(table|database))\b`, Reason: "SQL statement"},
	{ID: "code-sql-tautology", Category: CategoryCodeInjection, Pattern: `['"]\s*or\s+['"]?\w+['"]?\s*=\s*['"]?\w+`, Reason: "SQL tautology"},
	{ID: "code-script-tag", Category: CategoryCodeInjection, Pattern: `<script[^>]*>`, Reason: "script tag"},
	{ID: "code-javascript-uri", Category: CategoryCodeInjection, Pattern: `javascript:`, Reason: "javascript: URI"},
	{ID: "code-eval", Category: CategoryCodeInjection, Pattern: `\b(eval|exec)\s*\(`, Reason: "dynamic code execution"},

	{ID: "credential-assignment", Category: CategoryCredentialLeak, Pattern: `\b(password|passwd|api[_-]?key|secret|token)\s*[=:]\s*["']?\w+`, Reason: "credential in plain text"},
	{ID: "credential-crypto-wallet", Category: CategoryCredentialLeak, Pattern: `\b(bitcoin|ethereum|mining|crypto)\b.*\bwallet`, Reason: "cryptocurrency wallet"},
	{ID: "credential-crypto-address", Category: CategoryCredentialLeak, Pattern: `\b(btc|eth)\b.*\baddress`, Reason: "cryptocurrency address"},
}

var defaultFileSafety = []Rule{
	{ID: "file-write-secrets", Pattern: `\b(write|create|delete|remove)\b.*(\.env\b|/etc/|/root/|\.ssh/|\.aws/)`, Reason: "operation on secrets or system files"},
	{ID: "file-hosts", Pattern: `\bhosts\s+file\b|/etc/hosts\b|C:\\Windows\\System32\\drivers\\etc\\hosts`, Reason: "hosts file"},
	{ID: "file-shell-profile", Pattern: `\.(bashrc|zshrc|profile)\b`, Reason: "shell startup file"},
	{ID: "file-config-json", Pattern: `\bconfig\.json\b`, Reason: "configuration file"},
	{ID: "file-backup", Pattern: `\.(bak|backup|old|orig)\b`, Reason: "backup file"},
	{ID: "file-key-material", Pattern: `\.(key|pem|p12|pfx)\b`, Reason: "key material"},
}

var defaultQuality = []Rule{
	{ID: "spam-click-link", Pattern: `\b(click|visit)\b.*https?://`, Reason: "link bait"},
	{ID: "spam-buy-now", Pattern: `\bbuy\s+now\b`},
	{ID: "spam-limited-time", Pattern: `\blimited\s+time\b`},
	{ID: "spam-act-fast", Pattern: `\bact\s+fast\b`},
	{ID: "spam-urgent", Pattern: `\burgent\s+response\b`},
	{ID: "spam-guaranteed", Pattern: `\$\d+.*\bguaranteed\b`},
}

var defaultScope = []Rule{
	{ID: "scope-internet-download", Pattern: `\bdownload\b.*\bfrom\b.*\binternet\b`, Reason: "downloads from the internet"},
	{ID: "scope-global-install", Pattern: `\binstall\b.*\bglobally\b|\b(npm|pnpm|yarn)\s+(install|i|add)\s+(-g|--global)\b`, Reason: "global install"},
	{ID: "scope-system-settings", Pattern: `\bmodify\b.*\bsystem\b.*\bsettings\b`, Reason: "system-wide change"},
	{ID: "scope-other-projects", Pattern: `\baccess\b.*\bother\b.*\bprojects\b`, Reason: "other projects"},
	{ID: "scope-send-email", Pattern: `\bsend\b.*\bemail\b`, Reason: "sends email"},
	{ID: "scope-social-post", Pattern: `\bpost\b.*\bto\b.*\bsocial\b`, Reason: "posts to social media"},
	{ID: "scope-git-push", Pattern: `\bgit\s+push\b`, Reason: "pushes to a remote"},
}

// DefaultRules returns the built-in rule set, every rule filled in with its
// group, category and case mode.
func DefaultRules() []Rule {
	var rules []Rule
	add := func(group string, list []Rule) {
		for _, r := range list {
			r.Group = group
			r.Source = SourceBuiltin
			rules = append(rules, fillDefaults(r))
		}
	}
	add(GroupDangerousPath, defaultDangerousPaths)
	add(GroupSafeCleanup, defaultSafeCleanup)
	add(GroupEnvFile, defaultEnvFile)
	add(GroupMalicious, defaultMalicious)
	add(GroupFileSafety, defaultFileSafety)
	add(GroupQuality, defaultQuality)
	add(GroupScope, defaultScope)
	return rules
}
