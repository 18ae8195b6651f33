package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                   = 0
	CodeBadRequest           = 40000
	CodeUsernameExists       = 40001
	CodeEmailExists          = 40002
	CodeEmailDomain          = 40003
	CodeUploadRejected       = 40004
	CodeInvalidAssistant     = 40005
	CodeUnauthorized         = 40100
	CodeInvalidCredentials   = 40101
	CodeForbidden            = 40300
	CodeNotFound             = 40400
	CodeConversationNotFound = 40401
	CodeAssistantNotFound    = 40402
	CodeFileTooLarge         = 41300
	CodeInternalServer       = 50000
	CodeChatProtocol         = 50201
	CodeChatUnreachable      = 50202
	CodeChatUnavailable      = 50300
	CodeChatTimeout          = 50400
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
