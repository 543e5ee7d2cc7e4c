// Package landing holds the marketing page content and the ticker parameters.
package landing

import (
	"encoding/json"
	"strings"
	"time"

	"docgpt/api/internal/diagnose"
)

type Link struct {
	Label string
	Href  string
}

type Feature struct {
	Icon        string
	Title       string
	Description string
}

type FooterColumn struct {
	Title string
	Items []string
}

// Ticker moves the conditions strip Step pixels every Interval. The page script
// wraps at half the rendered strip width, where the duplicated second copy starts.
type Ticker struct {
	Interval time.Duration
	Step     int
}

func (t Ticker) IntervalMillis() int64 { return t.Interval.Milliseconds() }

type Page struct {
	Brand         string
	Nav           []Link
	Conditions    []string
	Ticker        Ticker
	HeroTitle     []string
	HeroStat      string
	HeroTagline   string
	Primary       Link
	Secondary     Link
	FeaturesTitle string
	FeaturesIntro string
	Features      []Feature
	APITitle      string
	APIIntro      string
	APIBullets    []string
	APISample     string
	CTATitle      string
	CTAText       string
	CTAActions    []Link
	Footer        []FooterColumn
	FooterTagline string
	Copyright     string
}

// Example is the documented request/response pair of the prediction endpoint.
var Example = diagnose.Result{
	Prediction: diagnose.Prediction{
		Condition:  "cataract",
		Confidence: 0.95,
		Severity:   diagnose.SeverityModerate,
	},
	Recommendations: []string{"Consult ophthalmologist", "Schedule follow-up"},
}

// APISample renders the code block from the wire types so it cannot drift.
func APISample() string {
	resp, _ := json.MarshalIndent(Example, "", "  ")
	var b strings.Builder
	b.WriteString("POST /api/v1/predict\n")
	b.WriteString("Content-Type: multipart/form-data\n\n")
	b.WriteString("{\n  \"disease_type\": \"" + diagnose.CategoryEye.String() + "\",\n  \"file\": <image_file>\n}\n\n")
	b.WriteString("Response:\n")
	b.Write(resp)
	return b.String()
}

func Default() Page {
	return Page{
		Brand: "DocGPT",
		Nav: []Link{
			{Label: "Try Demo", Href: "/diagnose"},
			{Label: "Sign Up", Href: "/signup"},
		},
		Conditions: []string{
			"CARDIOVASCULAR", "ALZHEIMER'S", "SCLEROSIS", "COLORECTAL",
			"OSTEOPOROSIS", "MELANOMA", "GLAUCOMA", "THYROID DISORDERS",
		},
		Ticker:      Ticker{Interval: 50 * time.Millisecond, Step: 1},
		HeroTitle:   []string{"AI-Powered", "Diagnostics."},
		HeroStat:    "112.3",
		HeroTagline: "Revolutionizing medical diagnostics with AI-driven imaging solutions. Precise. Fast. Intelligent.",
		Primary:     Link{Label: "Try Diagnosis", Href: "/diagnose"},
		Secondary:   Link{Label: "API Documentation", Href: "/api-docs"},

		FeaturesTitle: "Advanced Medical Imaging Analysis",
		FeaturesIntro: "Our AI-powered platform combines cutting-edge Vision Transformer technology with medical expertise to provide accurate and rapid diagnosis across multiple conditions.",
		Features: []Feature{
			{Icon: "activity", Title: "Real-time Analysis", Description: "Get instant results with our high-performance AI models"},
			{Icon: "microscope", Title: "Multiple Conditions", Description: "Support for various medical imaging types and conditions"},
			{Icon: "shield", Title: "HIPAA Compliant", Description: "Secure processing with full regulatory compliance"},
			{Icon: "database", Title: "Comprehensive API", Description: "Easy integration with existing healthcare systems"},
			{Icon: "clock", Title: "24/7 Availability", Description: "Round-the-clock access to diagnostic tools"},
			{Icon: "zap", Title: "Fast Processing", Description: "Lightning-fast analysis of medical images"},
		},

		APITitle: "Simple API Integration",
		APIIntro: "Integrate our powerful medical diagnosis capabilities into your healthcare applications with just a few lines of code.",
		APIBullets: []string{
			"Multiple disease type support",
			"RESTful API endpoints",
			"Detailed response format",
			"Comprehensive documentation",
			"Sample code & SDKs",
		},
		APISample: APISample(),

		CTATitle: "Ready to Get Started?",
		CTAText:  "Join healthcare providers worldwide who are using DocGPT to revolutionize their diagnostic capabilities.",
		CTAActions: []Link{
			{Label: "Create Account", Href: "/signup"},
			{Label: "Contact Sales", Href: "/contact"},
		},

		Footer: []FooterColumn{
			{Title: "Product", Items: []string{"Features", "API", "Documentation", "Pricing"}},
			{Title: "Company", Items: []string{"About", "Blog", "Careers", "Contact"}},
			{Title: "Legal", Items: []string{"Privacy Policy", "Terms of Service", "HIPAA Compliance", "Security"}},
		},
		FooterTagline: "Advanced AI-powered medical diagnosis platform",
		Copyright:     "© 2025 DocGPT. All rights reserved.",
	}
}
