package classify

import (
	"apidrift/internal/core/errors"
	"apidrift/internal/engine/apidiff"
	"apidrift/internal/engine/callsite"
	"apidrift/internal/engine/parser"
	"apidrift/internal/engine/resolver"
)

// Classify compares predicted against groundTruth. bindings come from the
// source unit both statements belong to and may be nil. The decision order
// is fixed:
//
//  1. blank prediction: Empty
//  2. prediction without a call: Other
//  3. equal after removing whitespace: Correct
//  4. resolved callee names differ: BCR
//  5. variadic signature: Uncertain
//  6. argument checks against the ground truth and the signature
//
// The only error is a missing signature.
func Classify(bindings *resolver.Bindings, predicted, groundTruth string, sig *apidiff.API) (Verdict, error) {
	if sig == nil {
		return Verdict{}, errors.New(errors.CodeValidationError, "missing ground-truth signature")
	}

	pred := callsite.ExtractOutermost(predicted)
	defer pred.Close()
	if pred.Kind == callsite.Empty {
		return Verdict{Outcome: Empty}, nil
	}
	if !callsite.HasCall(predicted) {
		return Verdict{Outcome: Other, Reason: ReasonNoCall}, nil
	}

	gt := callsite.ExtractOutermost(groundTruth)
	defer gt.Close()

	v := Verdict{
		PredictedFQN: bindings.Normalize(calleeOf(pred)),
		ExpectedFQN:  bindings.Normalize(calleeOf(gt)),
	}

	if parser.StripSpace(predicted) == parser.StripSpace(groundTruth) {
		v.Outcome, v.Reason = Correct, ReasonExactMatch
		return v, nil
	}

	if v.PredictedFQN != v.ExpectedFQN {
		v.Outcome, v.Reason = BCR, ReasonNameMismatch
		return v, nil
	}

	if sig.Variadic() {
		v.Outcome, v.Reason = Uncertain, ReasonVariableArgs
		return v, nil
	}

	if pred.Kind != callsite.Parsed {
		v.Outcome, v.Reason = Uncertain, ReasonUnparsedArgs
		return v, nil
	}

	v.Outcome, v.Reason = checkArguments(pred, gt, sig)
	return v, nil
}

// calleeOf returns the raw callee, or "" when the statement has none.
func calleeOf(ex callsite.Extraction) string {
	if !ex.HasCall() {
		return ""
	}
	return ex.Call.Name
}

func checkArguments(pred, gt callsite.Extraction, sig *apidiff.API) (Outcome, string) {
	predArgs := callsite.AnalyzeArguments(pred.Call)
	if predArgs.PositionalAfterKeyword() {
		return BCR, ReasonArgumentOrder
	}

	gtParsed := gt.Kind == callsite.Parsed
	gtArgs := callsite.AnalyzeArguments(gt.Call)
	if gtParsed && predArgs.Count() != gtArgs.Count() {
		return BCR, ReasonArgumentCount
	}

	keywords := sig.Keywords()
	valid := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		valid[k] = true
	}
	for _, name := range predArgs.KeywordNames() {
		if !valid[name] {
			return BCR, ReasonInvalidKeyword
		}
	}

	if predArgs.Count() > len(keywords) {
		return BCR, ReasonArgumentCount
	}

	if supplied(predArgs, sig) < requiredCount(sig, gtArgs, gtParsed) {
		return BCR, ReasonArgumentCount
	}
	return Correct, ReasonCompatibleMatch
}

// requiredCount is the number of parameters a call must bind. Signatures
// without recorded defaults treat every parameter as required, capped by the
// argument count of a parsed ground truth.
func requiredCount(sig *apidiff.API, gtArgs callsite.Arguments, gtParsed bool) int {
	n := len(sig.Required())
	if sig.Optional == nil && gtParsed && gtArgs.Count() < n {
		n = gtArgs.Count()
	}
	return n
}

// supplied counts the arguments binding required parameters. A splat may
// bind any number of them, so its presence satisfies the check.
func supplied(args callsite.Arguments, sig *apidiff.API) int {
	required := make(map[string]bool)
	for _, p := range sig.Required() {
		required[p] = true
	}
	n := 0
	for _, arg := range args.Positional {
		if arg.Splat {
			return len(required)
		}
		n++
	}
	for _, kw := range args.Keyword {
		if kw.Splat {
			return len(required)
		}
		if required[kw.Keyword] {
			n++
		}
	}
	return n
}
