package report

import (
	"fmt"
	"strings"

	"github.com/ahrav/go-radiograph/internal/domain"
)

const disclaimerText = "This report contains AI-assisted analysis intended for diagnostic support only. " +
	"Results must be interpreted by qualified medical professionals in conjunction with clinical presentation, " +
	"patient history, and physical examination. The AI system serves as a decision support tool and does not " +
	"replace clinical judgment or professional medical evaluation."

type narrative struct {
	classification  string
	summary         string
	attention       string
	recommendation  string
	impression      []string
	recommendations []string
}

func techniqueText(model string) string {
	return "Digital radiographic images of the wrist were obtained and analyzed using artificial " +
		"intelligence-assisted fracture detection software (" + model + " architecture). Images were processed " +
		"through standardized preprocessing pipeline with ImageNet normalization. AI analysis completed with " +
		"Grad-CAM visualization for explainable decision-making."
}

func methodologyItem(model string) string {
	return "AI METHODOLOGY - Analysis performed using validated " + model + " deep learning architecture " +
		"with explainable AI visualization (Grad-CAM) for clinical transparency."
}

// narrativeFor selects the fracture-positive or fracture-negative phrasing.
func narrativeFor(d domain.Diagnosis, confidence, model string) narrative {
	if d.IsPositive() {
		return narrative{
			classification: strings.ToUpper(string(d)),
			summary: fmt.Sprintf("FRACTURE DETECTED: The AI analysis has identified radiographic features "+
				"consistent with fracture patterns in the examined wrist. The deep learning model demonstrates "+
				"high confidence (%s) in this assessment based on bone structure analysis.", confidence),
			attention: "Grad-CAM visualization reveals focal areas of attention corresponding to regions of " +
				"suspected fracture. The AI model's attention map highlights anatomical structures that " +
				"contributed most significantly to the fracture classification.",
			recommendation: "Orthopedic consultation is advised for further evaluation and management planning. " +
				"Clinical correlation with patient symptoms and physical examination findings is recommended.",
			impression: []string{
				fmt.Sprintf("ACUTE FRACTURE - AI-assisted analysis demonstrates fracture patterns in the wrist "+
					"radiograph (confidence: %s).", confidence),
				"CLINICAL CORRELATION ADVISED - Recommend orthopedic evaluation for treatment planning and management.",
				methodologyItem(model),
			},
			recommendations: []string{
				"Orthopedic consultation for further evaluation and management planning",
				"Clinical correlation with patient symptoms and physical examination findings",
			},
		}
	}

	return narrative{
		classification: strings.ToUpper(string(d)),
		summary: fmt.Sprintf("NO ACUTE FRACTURE IDENTIFIED: The AI analysis demonstrates normal bone "+
			"architecture without evidence of acute fracture. The deep learning model shows high confidence "+
			"(%s) in the normal classification.", confidence),
		attention: "Grad-CAM visualization shows distributed attention across normal anatomical structures " +
			"without focal areas of concern. The AI model's analysis is consistent with intact bone continuity.",
		recommendation: "No immediate orthopedic intervention indicated based on imaging. If clinical suspicion " +
			"remains high or symptoms persist, consider follow-up imaging or specialist consultation.",
		impression: []string{
			fmt.Sprintf("NO ACUTE FRACTURE - AI-assisted analysis shows no evidence of acute fracture in the "+
				"wrist radiograph (confidence: %s).", confidence),
			methodologyItem(model),
		},
		recommendations: []string{
			"No immediate orthopedic intervention indicated based on imaging",
			"Follow-up imaging or specialist consultation if clinical suspicion remains high or symptoms persist",
		},
	}
}
