package companion

import (
	"errors"
	"strings"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/domain/shared"
)

const genericHint = "操作失败，请稍后重试"

var codeHints = map[string]string{
	shared.CodeValidation:      "提交的信息不完整或格式有误，请检查后重试",
	shared.CodeConflict:        "该邮箱已被注册，请直接登录或更换邮箱",
	shared.CodeUnauthenticated: "当前密码不正确",
	shared.CodeNotFound:        "未找到对应的资料",
	shared.CodeInvalidState:    "资料状态只能由审核流程修改",
}

// keywordHints are checked in order against the lower-cased error text
var keywordHints = []struct {
	keywords []string
	hint     string
}{
	{[]string{"timeout", "timed out", "deadline exceeded"}, "服务响应超时，请稍后重试"},
	{[]string{"413", "too large", "entity too large"}, "图片文件过大，请压缩后重新上传"},
	{[]string{"429", "throttled", "rate limit"}, "请求过于频繁，请稍后再试"},
	{[]string{"422", "unprocessable", "invalid value"}, "部分信息格式不被接受，请检查后重试"},
	{[]string{"401", "403", "access denied", "unauthorized"}, "服务配置异常，请联系管理员"},
	{[]string{"connection refused", "no such host", "eof"}, "服务暂时不可用，请稍后重试"},
}

// UserHint maps an operation error to a short message for end users.
// Domain codes are matched first, then well-known upstream failure text.
func UserHint(err error) string {
	if err == nil {
		return ""
	}

	var verr *companion.ValidationError
	if errors.As(err, &verr) {
		return codeHints[shared.CodeValidation]
	}
	if hint, ok := codeHints[shared.CodeOf(err)]; ok {
		return hint
	}

	var rerr *companion.ReconcileError
	if errors.As(err, &rerr) && len(rerr.Errors) > 0 {
		return "部分资料未能保存，请检查后重新提交"
	}

	text := strings.ToLower(err.Error())
	for _, rule := range keywordHints {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.hint
			}
		}
	}
	return genericHint
}
