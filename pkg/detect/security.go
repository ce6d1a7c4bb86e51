package detect

import (
	"context"
	"path"
	"strings"

	"github.com/praetorian-inc/titus"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

// SecurityPhase scans for hardcoded secrets with Titus. No network calls:
// validation is disabled so the scan never touches live credentials.
func SecurityPhase() phase.Phase {
	return phase.Phase{
		Name:      "security",
		Detectors: []string{finding.DetectorSecurity},
		Missing:   titusMissing,
		Run:       runSecurity,
	}
}

// titusMissing probes scanner construction once; a broken rule pack makes
// the whole phase a tool-missing skip rather than a scan failure.
func titusMissing() (bool, string) {
	scanner, err := titus.NewScanner()
	if err != nil {
		return true, "titus"
	}
	scanner.Close()
	return false, ""
}

// securitySkipExtensions are binary or generated formats not worth scanning.
var securitySkipExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".exe": true,
	".so": true, ".dylib": true, ".woff": true, ".woff2": true, ".ttf": true,
	".db": true, ".sqlite": true, ".lock": true, ".min.js": true,
}

func runSecurity(ctx context.Context, pc *phase.Context) (phase.Result, error) {
	e := newEmitter()

	scanner, err := titus.NewScanner()
	if err != nil {
		return phase.Result{}, err
	}
	defer scanner.Close()

	for _, f := range pc.Files {
		if err := ctx.Err(); err != nil {
			return phase.Result{}, err
		}
		if zone.ExcludedFromScoring(f.Zone) {
			continue
		}
		if securitySkipExtensions[strings.ToLower(path.Ext(f.Rel))] {
			continue
		}
		content, rerr := pc.ReadFile(f.Rel)
		if rerr != nil || int64(len(content)) > SecretsMaxFileSize {
			continue
		}
		e.checked(finding.DetectorSecurity, 1)

		matches, serr := scanner.ScanString(string(content))
		if serr != nil {
			continue
		}
		// Line-scoped identity: the rule that matched lives in detail, so
		// two rules firing on one line collapse to a single finding.
		for _, match := range matches {
			line := int(match.Location.Source.Start.Line)
			fd := newFinding(finding.DetectorSecurity, f.Rel,
				finding.LineSymbol(line),
				finding.TierQuickFix, finding.ConfidenceHigh,
				"Potential secret: "+match.RuleName)
			fd.Detail.Line = line
			fd.Detail.Extra = map[string]string{
				"rule_id":   match.RuleID,
				"rule_name": match.RuleName,
				"category":  secretCategory(match.RuleID),
			}
			fd.Lang = f.Lang
			e.emit(fd, f.Zone)
		}
	}

	return e.result(), nil
}

// secretCategory maps a NoseyParker-style rule id ("np.aws.1") to its
// provider segment.
func secretCategory(ruleID string) string {
	parts := strings.SplitN(ruleID, ".", 3)
	if len(parts) < 2 {
		return "generic"
	}
	return parts[1]
}
