package flows

// Deps groups flow dependency sets. The root manager builds this once and
// delegates request methods to the matching flow.
type Deps struct {
	Issue   IssueDeps
	Verify  VerifyDeps
	Refresh RefreshDeps
	Revoke  RevokeDeps
}
