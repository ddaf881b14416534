package extractors

import (
	"encoding/xml"
	"strings"

	"github.com/fyrsmithlabs/errsift/internal/schema"
)

// JUnitXML extracts failures from JUnit-style XML reports, the
// structured interchange format most JVM test runners and many CI
// systems emit. Both a bare <testsuite> root and a <testsuites>
// wrapper are accepted. File and line come from the first JVM stack
// frame in the failure body when present.
type JUnitXML struct{}

// NewJUnitXML creates the JUnit XML report extractor.
func NewJUnitXML() *JUnitXML { return &JUnitXML{} }

type junitSuites struct {
	XMLName xml.Name     `xml:"testsuites"`
	Suites  []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	XMLName xml.Name    `xml:"testsuite"`
	Name    string      `xml:"name,attr"`
	Cases   []junitCase `xml:"testcase"`
}

type junitCase struct {
	ClassName string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Failure   *junitProblem `xml:"failure"`
	Error     *junitProblem `xml:"error"`
}

type junitProblem struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

func (x *JUnitXML) Name() string  { return "junitxml" }
func (x *JUnitXML) Priority() int { return 70 }

func (x *JUnitXML) Hints() schema.Hints {
	return schema.Hints{
		Required: []string{"<"},
		AnyOf:    []string{"<testsuite", "<testcase"},
	}
}

func (x *JUnitXML) Detect(output string) schema.DetectionResult {
	var s score
	if strings.Contains(output, "<testsuite") {
		s.add(40, "testsuite element")
	}
	if strings.Contains(output, "<testcase") {
		s.add(25, "testcase element")
	}
	if strings.Contains(output, "<failure") || strings.Contains(output, "<error") {
		s.add(25, "failure element")
	}
	if strings.Contains(output, "<?xml") {
		s.add(10, "xml declaration")
	}
	return s.result("junit xml")
}

func (x *JUnitXML) Extract(output, command string) schema.ExtractionResult {
	suites, err := x.parse(output)
	if err != nil || len(suites) == 0 {
		return schema.NotMyFormat("junit xml")
	}

	var errs []schema.FormattedError
	for _, suite := range suites {
		for _, tc := range suite.Cases {
			problem := tc.Failure
			severity := schema.SeverityError
			if problem == nil {
				problem = tc.Error
			}
			if problem == nil {
				continue
			}

			msg := strings.TrimSpace(problem.Message)
			if msg == "" {
				msg = clip(problem.Body, 200)
			}
			if msg == "" {
				msg = "Test failed: " + tc.Name
			}

			e := schema.FormattedError{
				Severity: severity,
				Message:  msg,
				Code:     problem.Type,
				Context:  strings.TrimSpace(tc.ClassName + " " + tc.Name),
			}
			if m := javaFrameRe.FindStringSubmatch(problem.Body); m != nil {
				e.File = m[1]
				e.Line = atoi(m[2])
			}
			errs = append(errs, e)
		}
	}

	if len(errs) == 0 {
		return schema.ExtractionResult{
			Errors:      []schema.FormattedError{},
			TotalErrors: 0,
			Summary:     "Found 0 errors and 0 warnings",
			Guidance:    "All reported test cases passed",
		}
	}

	result := schema.Finalize(errs, junitGuidance(errs), nil)
	result.Metadata = &schema.ResultMetadata{
		// A successful XML parse consumes the whole document.
		Completeness: 1,
	}
	return result
}

// parse accepts either a <testsuites> wrapper or a bare <testsuite>.
func (x *JUnitXML) parse(output string) ([]junitSuite, error) {
	var wrapper junitSuites
	if err := xml.Unmarshal([]byte(output), &wrapper); err == nil {
		return wrapper.Suites, nil
	}
	var single junitSuite
	if err := xml.Unmarshal([]byte(output), &single); err != nil {
		return nil, err
	}
	return []junitSuite{single}, nil
}

func junitGuidance(errs []schema.FormattedError) string {
	for _, e := range errs {
		if strings.Contains(e.Code, "Assertion") || strings.Contains(e.Message, "expected") {
			return "Fix failing assertions: compare expected and actual values in each failure"
		}
	}
	return "Inspect each failing test case and align the implementation with the expected behavior"
}

func (x *JUnitXML) Samples() []schema.Sample {
	return []schema.Sample{
		{
			Name: "suite with failure",
			Input: `<?xml version="1.0" encoding="UTF-8"?>
<testsuite name="com.example.FooTest" tests="2" failures="1" errors="0">
  <testcase classname="com.example.FooTest" name="testBar" time="0.01">
    <failure message="expected:&lt;1&gt; but was:&lt;2&gt;" type="junit.framework.AssertionFailedError">junit.framework.AssertionFailedError: expected:&lt;1&gt; but was:&lt;2&gt;
	at com.example.FooTest.testBar(FooTest.java:25)
</failure>
  </testcase>
  <testcase classname="com.example.FooTest" name="testBaz" time="0.01"/>
</testsuite>
`,
			Command:       "mvn surefire-report:report",
			WantTool:      "junitxml",
			MinConfidence: schema.ConfidenceHigh,
			WantTotal:     1,
			WantErrors: []schema.FormattedError{
				{
					File:     "FooTest.java",
					Line:     25,
					Severity: "error",
					Message:  "expected:<1> but was:<2>",
					Code:     "junit.framework.AssertionFailedError",
					Context:  "com.example.FooTest testBar",
				},
			},
		},
	}
}
