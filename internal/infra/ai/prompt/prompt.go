package prompt

import "fmt"

// GetAnalysisPrompt fixes the four required sections of a scan analysis and
// mandates JSON-only output.
func GetAnalysisPrompt() string {
	return `Please analyze this MRI brain scan image and provide:

1. Detection of any visible brain tumors (location, size, characteristics) and what type they are (glioma, meningioma, pituitary). The image may not have a tumor at all. If there is a tumor, give me the predicted X Y Z coordinates of where it is located.
2. Assessment of gray matter loss or abnormalities (regions affected, severity). There may not be any gray matter loss at all.
3. Other notable abnormalities (if present)
4. Recommended follow-up actions based on findings

Be very brief in analysis but accurate. Output your analysis as a JSON object only, without extra text or code block formatting. Use the keys "tumor", "gray_matter", "other_abnormalities" and "recommendations"; set "tumor" and "gray_matter" to null when nothing is found.`
}

// GetSummaryPrompt embeds a prior analysis as inline JSON and asks for a
// short patient-facing summary.
func GetSummaryPrompt(contextJSON string) string {
	return fmt.Sprintf(`The following JSON is the structured analysis of an MRI brain scan:

%s

Write a brief summary of these findings in two to three plain sentences for a patient. Plain text only, no markdown and no JSON.`, contextJSON)
}

// GetChatPrompt grounds a free-form follow-up question in the most recent
// analysis.
func GetChatPrompt(contextJSON, question string) string {
	return fmt.Sprintf(`You are assisting with questions about an MRI brain scan. The structured analysis of the most recent scan is:

%s

Answer the question below using this analysis as context. Respond in plain text without any markdown formatting.

Question: %s`, contextJSON, question)
}
