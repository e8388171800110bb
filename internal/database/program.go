package database

import "affiliate-api/internal/models"

// GetProgramByID 获取启用中的佣金计划
func GetProgramByID(programID string) (*models.CommissionProgram, error) {
	var program models.CommissionProgram
	err := DB.Where("program_id = ? AND is_active = ?", programID, true).First(&program).Error
	if err != nil {
		return nil, err
	}
	return &program, nil
}

// ListPrograms 列出所有启用中的佣金计划
func ListPrograms() ([]models.CommissionProgram, error) {
	var programs []models.CommissionProgram
	err := DB.Where("is_active = ?", true).Find(&programs).Error
	return programs, err
}
