package analysis

// DefaultIgnoreGlobs keeps VCS metadata, build output, dependencies,
// lockfiles and minified or compiled artifacts out of the candidate search.
var DefaultIgnoreGlobs = []string{
	"**/.git/**",
	"**/.hg/**",
	"**/.svn/**",
	"**/node_modules/**",
	"**/bower_components/**",
	"**/vendor/**",
	"**/.venv/**",
	"**/venv/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/out/**",
	"**/target/**",
	"**/coverage/**",
	"**/.next/**",
	"**/.lair/**",
	"*.lock",
	"package-lock.json",
	"pnpm-lock.yaml",
	"go.sum",
	"*.min.js",
	"*.min.css",
	"*.map",
	"*.pyc",
	"*.class",
	"*.o",
	"*.so",
	"*.dll",
	"*.exe",
	"*.wasm",
}
