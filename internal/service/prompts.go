package service

import (
	"fmt"
	"strings"

	"github.com/Chochanguk/Yoribogo/server/internal/textnorm"
)

// RejectionToken is what the model answers instead of a dish when the
// request extras are off-topic or unsafe.
const RejectionToken = "에러"

// BuildDishPrompt asks for one dish as "한국어 이름(English description)".
func BuildDishPrompt(req RecommendRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "날씨: '%s', 기분: '%s', 인원: '%s', 채식 여부: '%s', 추가 사항: '%s'. ",
		req.Weather, req.Mood, req.Headcount, req.Vegetarian, req.Extra)
	b.WriteString("추가 사항이 요리와 관련된 경우(예: 알레르기 정보, 못 먹는 음식, 선호하는 음식, 싫어하는 음식, 상황과 관련된 정보), ")
	b.WriteString("그 요청을 가장 우선 고려하여 요리를 추천해줘. ")
	b.WriteString("비관련 사항(예: 유명 인물 이름, 해킹 방법 등, 성적인 단어)이 포함된 경우에는 요리를 추천하지 말고 '" + RejectionToken + "'라고 답해줘. ")
	b.WriteString("요리를 추천하는 경우에는 다양한 나라의 요리 중 하나를 ")
	b.WriteString("'요약된 한국어 요리 이름(Detailed English description including the dish name)' ")
	b.WriteString("형식으로 앞과 뒤에 말이나 특수문자, 기호를 붙이지 말고 한 문장으로 추천해줘. ")
	b.WriteString("영어 설명에는 영어 요리 이름을 포함하고, 설명은 20단어 이내로 간결하게 해줘.")
	return b.String()
}

// BuildIngredientsPrompt asks for a comma separated ingredient list with amounts.
func BuildIngredientsPrompt(name string) string {
	return name + "에 필요한 재료를 ','로 구분해 양과 함께 알려줘. 예: '설탕 2스푼'. 특수문자나 불필요한 말은 제외."
}

// BuildImagePrompt describes a food photograph of the dish.
func BuildImagePrompt(description string) string {
	prompt := "A professional food photography shot of " + strings.ToLower(description) +
		", shot with natural lighting, shallow depth of field, restaurant quality presentation, high resolution, appetizing colors"
	// image models cap prompt length
	if len(prompt) > 900 {
		prompt = strings.ToValidUTF8(prompt[:900], "")
	}
	return prompt
}

// IsRejection reports whether answer is the model's refusal token.
func IsRejection(answer string) bool {
	return textnorm.StripEdgePunctuation(strings.TrimSpace(answer)) == RejectionToken
}
